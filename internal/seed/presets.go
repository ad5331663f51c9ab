package seed

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Preset describes the size and shape of a seeded dataset.
type Preset struct {
	Users           int     `yaml:"users"`
	FriendsPerUser  int     `yaml:"friends_per_user"`
	PendingPerUser  int     `yaml:"pending_per_user"`
	Posts           int     `yaml:"posts"`
	CommentsPerPost int     `yaml:"comments_per_post"`
	LikeRatio       float64 `yaml:"like_ratio"`
	MaxDays         int     `yaml:"max_days"`
}

// BuiltinPresets are available without a presets file.
var BuiltinPresets = map[string]Preset{
	"minimal": {Users: 5, FriendsPerUser: 1, PendingPerUser: 1, Posts: 10, CommentsPerPost: 2, LikeRatio: 0.3, MaxDays: 7},
	"demo":    {Users: 50, FriendsPerUser: 4, PendingPerUser: 2, Posts: 200, CommentsPerPost: 5, LikeRatio: 0.15, MaxDays: 90},
	"busy":    {Users: 300, FriendsPerUser: 12, PendingPerUser: 3, Posts: 2000, CommentsPerPost: 8, LikeRatio: 0.05, MaxDays: 365},
}

// Validate rejects presets that cannot be seeded.
func (p Preset) Validate() error {
	switch {
	case p.Users < 0 || p.Posts < 0 || p.CommentsPerPost < 0:
		return fmt.Errorf("counts must not be negative")
	case p.FriendsPerUser < 0 || p.PendingPerUser < 0:
		return fmt.Errorf("connection counts must not be negative")
	case p.LikeRatio < 0 || p.LikeRatio > 1:
		return fmt.Errorf("like_ratio must be between 0 and 1, got %v", p.LikeRatio)
	case p.Posts > 0 && p.Users == 0:
		return fmt.Errorf("posts need at least one user")
	}
	return nil
}

// ParsePresets decodes a YAML document of named presets.
func ParsePresets(r io.Reader) (map[string]Preset, error) {
	var presets map[string]Preset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&presets); err != nil {
		if err == io.EOF {
			return map[string]Preset{}, nil
		}
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	for name, p := range presets {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return presets, nil
}

// LoadPreset resolves name from the YAML file at path, falling back to the
// built-in presets. An empty path only consults the built-ins.
func LoadPreset(path, name string) (Preset, error) {
	if path != "" {
		f, err := os.Open(path) // #nosec G304: operator-supplied presets file
		if err != nil {
			return Preset{}, err
		}
		defer func() { _ = f.Close() }()
		presets, err := ParsePresets(f)
		if err != nil {
			return Preset{}, err
		}
		if p, ok := presets[name]; ok {
			return p, nil
		}
	}
	if p, ok := BuiltinPresets[name]; ok {
		return p, nil
	}
	return Preset{}, fmt.Errorf("unknown preset %q (built-in: %v)", name, builtinNames())
}

func builtinNames() []string {
	names := make([]string, 0, len(BuiltinPresets))
	for n := range BuiltinPresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset seeds a full dataset shaped by p.
func (s *Seeder) ApplyPreset(p Preset) (Summary, error) {
	if err := p.Validate(); err != nil {
		return Summary{}, err
	}
	if p.MaxDays > 0 {
		s.factory.opts.MaxDays = p.MaxDays
	}
	users, err := s.SeedSocialMesh(p.Users, p.FriendsPerUser, p.PendingPerUser)
	if err != nil {
		return s.summary, err
	}
	if _, err := s.SeedEngagement(users, p.Posts, p.CommentsPerPost, p.LikeRatio); err != nil {
		return s.summary, err
	}
	return s.summary, nil
}
