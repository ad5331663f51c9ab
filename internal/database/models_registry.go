package database

import "sociallink/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Connection{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
	}
}
