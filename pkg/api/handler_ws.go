package api

import (
	"net/http"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler handles GET /ws. Browsers cannot set headers on WebSocket
// dials, so the token may also come in as a query parameter.
func (s *Server) wsHandler(c *echo.Context) error {
	if s.gateway == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "live gateway not available")
	}

	token, ok := bearerToken(c.Request().Header.Get("Authorization"))
	if !ok {
		token = c.QueryParam("token")
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	user, err := s.tokens.Parse(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	// Blocks until the connection closes.
	s.gateway.HandleConnection(c.Request().Context(), conn, user)
	return nil
}
