package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-tracker/internal/dto"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetProfile returns the authenticated user's profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	profile, err := h.profileService.Get(c.Request.Context(), userID)
	if err != nil {
		respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

// UpdateProfile changes name, phone and country code
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type UpdateProfileRequest struct {
		Name        *string `json:"name"`
		Phone       *string `json:"phone"`
		CountryCode *string `json:"country_code"`
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), userID, services.UpdateProfileInput{
		Name:        req.Name,
		Phone:       req.Phone,
		CountryCode: req.CountryCode,
	})
	if err != nil {
		respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

// UploadAvatar replaces the authenticated user's avatar
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	file, closeFile, ok := formFile(c)
	if !ok {
		return
	}
	defer closeFile()

	profile, err := h.profileService.UpdateAvatar(c.Request.Context(), userID, file)
	if err != nil {
		respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

func respondProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, services.ErrProfileNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProfileNameTooShort),
		errors.Is(err, services.ErrInvalidPhone),
		errors.Is(err, services.ErrInvalidCountryCode):
		apierrors.BadRequest(c, err.Error())
	default:
		respondMediaError(c, err)
	}
}
