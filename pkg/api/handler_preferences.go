package api

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/mysocial-labs/relay/pkg/models"
	"github.com/mysocial-labs/relay/pkg/store"
)

// getPreferencesHandler handles GET /api/v1/preferences. Users without
// a stored row get the defaults.
func (s *Server) getPreferencesHandler(c *echo.Context) error {
	user := userAddress(c)
	prefs, err := s.store.GetPreferences(c.Request().Context(), user)
	if errors.Is(err, store.ErrNotFound) {
		prefs = models.DefaultPreferences(user)
	} else if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, prefs)
}

// updatePreferencesHandler handles POST /api/v1/preferences.
func (s *Server) updatePreferencesHandler(c *echo.Context) error {
	var req UpdatePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	prefs := &models.UserPreferences{
		UserAddress:       userAddress(c),
		PushEnabled:       req.PushEnabled,
		EmailEnabled:      req.EmailEnabled,
		NotificationTypes: req.NotificationTypes,
	}
	if err := s.store.UpsertPreferences(c.Request().Context(), prefs); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, prefs)
}

// registerDeviceTokenHandler handles POST /api/v1/device-tokens.
// Re-registering an existing token refreshes its metadata.
func (s *Server) registerDeviceTokenHandler(c *echo.Context) error {
	var req RegisterDeviceTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DeviceToken == "" || req.Platform == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device_token and platform are required")
	}

	token := &models.DeviceToken{
		UserAddress: userAddress(c),
		DeviceToken: req.DeviceToken,
		Platform:    req.Platform,
		AppVersion:  req.AppVersion,
	}
	if err := s.store.UpsertDeviceToken(c.Request().Context(), token); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, &StatusResponse{Status: "ok"})
}
