package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"vestryapi/services"
)

type SetAvatarIn struct {
	ImageURL string `json:"image_url" validate:"required,url,max=2000"`
}

type AvatarStatusResponse struct {
	AvatarID          string `json:"avatar_id"`
	ImageURL          string `json:"image_url"`
	ChangesApplied    int    `json:"changes_applied"`
	MaxChanges        int    `json:"max_changes"`
	NeedsResetWarning bool   `json:"needs_reset_warning"`
}

type AvatarsController struct {
	Store services.AvatarStoreProvider
}

func (controller *AvatarsController) AvatarRoutes(g *echo.Group) {
	g.POST("/:avatarId", controller.SetAvatar)
	g.GET("/:avatarId/status", controller.GetAvatarStatus)
	g.POST("/:avatarId/reset", controller.ResetAvatar)
}

func (controller *AvatarsController) SetAvatar(c echo.Context) error {
	var req SetAvatarIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	avatarID := c.Param("avatarId")
	if err := controller.Store.Set(c.Request().Context(), avatarID, req.ImageURL); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save avatar, please try again"})
	}
	return c.JSON(http.StatusOK, map[string]string{"avatar_id": avatarID, "image_url": req.ImageURL})
}

func (controller *AvatarsController) GetAvatarStatus(c echo.Context) error {
	avatarID := c.Param("avatarId")
	record, err := controller.Store.Get(c.Request().Context(), avatarID)
	if err != nil {
		if errors.Is(err, services.ErrAvatarNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Avatar not found"})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load avatar"})
	}
	status, err := controller.Store.Status(c.Request().Context(), avatarID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load avatar status"})
	}
	return c.JSON(http.StatusOK, AvatarStatusResponse{
		AvatarID:          avatarID,
		ImageURL:          record.ImageURL,
		ChangesApplied:    status.ChangesApplied,
		MaxChanges:        status.MaxChanges,
		NeedsResetWarning: status.NeedsResetWarning,
	})
}

// ResetAvatar restores the original avatar photo and clears the mutation
// counter.
func (controller *AvatarsController) ResetAvatar(c echo.Context) error {
	avatarID := c.Param("avatarId")
	if err := controller.Store.Reset(c.Request().Context(), avatarID); err != nil {
		if errors.Is(err, services.ErrAvatarNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Avatar not found"})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to reset avatar, please try again"})
	}
	status, err := controller.Store.Status(c.Request().Context(), avatarID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load avatar status"})
	}
	record, err := controller.Store.Get(c.Request().Context(), avatarID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load avatar"})
	}
	return c.JSON(http.StatusOK, AvatarStatusResponse{
		AvatarID:          avatarID,
		ImageURL:          record.ImageURL,
		ChangesApplied:    status.ChangesApplied,
		MaxChanges:        status.MaxChanges,
		NeedsResetWarning: status.NeedsResetWarning,
	})
}
