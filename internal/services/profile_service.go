package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/media"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrProfileNameTooShort = errors.New("name must be at least 2 characters")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrInvalidCountryCode  = errors.New("invalid country code")

	phonePattern       = regexp.MustCompile(`^[0-9 ()-]{4,20}$`)
	countryCodePattern = regexp.MustCompile(`^\+[0-9]{1,4}$`)
)

// AvatarUploader stores avatar images.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, userID string, file *media.File) (string, error)
	SameBlob(a, b string) bool
}

// ProfileService handles profile reads and updates
type ProfileService struct {
	profileRepo repository.ProfileRepository
	avatars     AvatarUploader
	cleanup     CleanupScheduler
	logger      *zap.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo repository.ProfileRepository, avatars AvatarUploader, cleanup CleanupScheduler, log *zap.Logger) *ProfileService {
	if cleanup == nil {
		cleanup = noopScheduler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		profileRepo: profileRepo,
		avatars:     avatars,
		cleanup:     cleanup,
		logger:      log,
	}
}

// UpdateProfileInput carries the editable profile fields.
// Empty phone or country code clears the field.
type UpdateProfileInput struct {
	Name        *string
	Phone       *string
	CountryCode *string
}

// Get returns the profile of userID
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}

// Update validates and applies input
func (s *ProfileService) Update(ctx context.Context, userID string, input UpdateProfileInput) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len([]rune(name)) < constants.MinProfileNameLength {
			return nil, ErrProfileNameTooShort
		}
		fields["name"] = name
	}
	if input.Phone != nil {
		phone := normalizeOptional(input.Phone)
		if phone != nil && !phonePattern.MatchString(*phone) {
			return nil, ErrInvalidPhone
		}
		fields["phone"] = phone
	}
	if input.CountryCode != nil {
		code := normalizeOptional(input.CountryCode)
		if code != nil && !countryCodePattern.MatchString(*code) {
			return nil, ErrInvalidCountryCode
		}
		fields["country_code"] = code
	}

	if len(fields) > 0 {
		if err := s.profileRepo.Update(ctx, userID, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProfileNotFound
			}
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.Get(ctx, userID)
}

// UpdateAvatar uploads file as the user's avatar and stores its URL on the profile.
// A previous avatar stored under a different extension is scheduled for cleanup.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID string, file *media.File) (*models.Profile, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.avatars.UploadAvatar(ctx, userID, file)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.Update(ctx, userID, map[string]any{"avatar_url": url}); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if current.AvatarURL != nil && !s.avatars.SameBlob(*current.AvatarURL, url) {
		s.cleanup.Schedule(*current.AvatarURL)
		logger.WithRequestID(ctx, s.logger).Debug("scheduled cleanup of previous avatar", zap.String("user_id", userID))
	}

	return s.Get(ctx, userID)
}
