package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// pageParams parses limit and offset query parameters. Out-of-range
// limits are capped, not rejected.
func pageParams(c *echo.Context, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if v := c.QueryParam("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		if n > maxPageLimit {
			n = maxPageLimit
		}
		limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		offset = n
	}
	return limit, offset, nil
}

// listNotificationsHandler handles GET /api/v1/notifications.
func (s *Server) listNotificationsHandler(c *echo.Context) error {
	limit, offset, err := pageParams(c, defaultPageLimit)
	if err != nil {
		return err
	}

	var platformID *string
	if v := c.QueryParam("platform_id"); v != "" {
		platformID = &v
	}

	notifications, err := s.store.ListNotifications(c.Request().Context(), userAddress(c), platformID, limit, offset)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, notifications)
}

// notificationCountsHandler handles GET /api/v1/notifications/counts.
func (s *Server) notificationCountsHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	user := userAddress(c)

	total, err := s.cache.UnreadCount(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "counter unavailable")
	}
	platforms, err := s.cache.UnreadCountsByPlatform(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "counter unavailable")
	}

	return c.JSON(http.StatusOK, &NotificationCountsResponse{
		Total:     total,
		Platforms: platforms,
	})
}

// markNotificationReadHandler handles POST /api/v1/notifications/:id/read.
// Marking twice is not an error; the second call reports already_read
// and leaves the counters alone.
func (s *Server) markNotificationReadHandler(c *echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}

	user := userAddress(c)
	platformID, alreadyRead, err := s.store.MarkNotificationRead(c.Request().Context(), id, user)
	if err != nil {
		return mapStoreError(err)
	}
	if alreadyRead {
		return c.JSON(http.StatusOK, &StatusResponse{Status: "already_read"})
	}

	if err := s.cache.DecrementUnread(c.Request().Context(), user, platformID); err != nil {
		s.logger.Warn("unread counter decrement failed", "user", user, "error", err)
	}
	return c.JSON(http.StatusOK, &StatusResponse{Status: "ok"})
}
