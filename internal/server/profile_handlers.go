package server

import (
	"sociallink/internal/middleware"
	"sociallink/internal/models"
	"sociallink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
// @Summary User profile
// @Description Profile, active connections and the first page of posts
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} object{status=bool,message=string}
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := middleware.UserID(c)

	view, err := s.profileService.UserProfile(c.UserContext(), viewerID, userID)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(view)
}

// UpdateMyProfile handles PUT /api/users/me/profile (multipart)
// @Summary Update the caller's profile
// @Description Fields left out are unchanged; avatar and banner replace the stored images
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file false "Avatar image"
// @Param banner formData file false "Banner image"
// @Param location formData string false "Location"
// @Param about_user formData string false "About"
// @Success 200 {object} object{status=bool,message=string,profile=models.Profile}
// @Router /users/me/profile [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	in := service.UpdateProfileInput{UserID: currentUser(c)}

	if isMultipart(c) {
		var err error
		if in.Avatar, err = formUpload(c, "avatar"); err != nil {
			return models.RespondFailure(c, err)
		}
		if in.Banner, err = formUpload(c, "banner"); err != nil {
			return models.RespondFailure(c, err)
		}
		in.Location = formValue(c, "location")
		in.About = formValue(c, "about_user")
	} else {
		var req struct {
			Location *string `json:"location"`
			About    *string `json:"about_user"`
		}
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		in.Location, in.About = req.Location, req.About
	}

	profile, err := s.profileService.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK("Profile updated successfully", "profile", profile))
}

// DeleteMyProfile handles DELETE /api/users/me/profile
// @Summary Delete the caller's profile and its images
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{status=bool,message=string,profile=models.Profile}
// @Router /users/me/profile [delete]
func (s *Server) DeleteMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.DeleteProfile(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK("Profile deleted successfully", "profile", profile))
}
