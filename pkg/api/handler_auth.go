package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/mysocial-labs/relay/pkg/auth"
)

// tokenHandler handles POST /api/v1/auth/token. The client signs a
// challenge message with its wallet key; a valid signature from a
// wallet with an existing profile gets a bearer token.
func (s *Server) tokenHandler(c *echo.Context) error {
	var req AuthTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.WalletAddress == "" || req.Signature == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "wallet_address, signature, and message are required")
	}

	// A message that fails structural or freshness checks is a bad
	// request; only a failed signature is an auth failure.
	now := time.Now()
	if err := auth.ValidateAuthMessage(req.Message, req.WalletAddress, now, s.logger); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.verifier.Verify([]byte(req.Message), req.Signature, req.WalletAddress); err != nil {
		s.logger.Warn("signature verification failed", "wallet", req.WalletAddress, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	exists, err := s.store.ProfileExists(c.Request().Context(), req.WalletAddress)
	if err != nil {
		return mapStoreError(err)
	}
	if !exists {
		return echo.NewHTTPError(http.StatusForbidden, "no profile for wallet address")
	}

	token, err := s.tokens.Mint(req.WalletAddress, now)
	if err != nil {
		return mapStoreError(err)
	}

	return c.JSON(http.StatusOK, &AuthTokenResponse{
		Token:       token,
		UserAddress: req.WalletAddress,
		ExpiresIn:   int64(auth.TokenTTL.Seconds()),
	})
}
