// Package auth implements wallet-signature sign-in: challenge message
// validation, signature verification, and bearer token minting.
package auth

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxMessageAge bounds how old a signed challenge may be.
	MaxMessageAge = 300 * time.Second

	messagePrefix = "Sign in to MySocial Relay"
)

// ValidateAuthMessage checks the signed challenge: it must carry the
// expected prefix, a wallet line matching the claimed address, and a
// unix timestamp that is in the past and at most MaxMessageAge old.
// A missing nonce only logs a warning; clients are expected to include
// one but old clients do not.
func ValidateAuthMessage(message, walletAddress string, now time.Time, logger *slog.Logger) error {
	if !strings.Contains(message, messagePrefix) {
		return fmt.Errorf("invalid message format: missing expected prefix")
	}
	if !strings.Contains(message, "Wallet: "+walletAddress) {
		return fmt.Errorf("message does not contain expected wallet address")
	}

	var timestampLine string
	for _, line := range strings.Split(message, "\n") {
		if strings.HasPrefix(line, "Timestamp:") {
			timestampLine = strings.TrimSpace(strings.TrimPrefix(line, "Timestamp:"))
			break
		}
	}
	if timestampLine == "" {
		return fmt.Errorf("missing timestamp in message")
	}

	timestamp, err := strconv.ParseInt(timestampLine, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format")
	}

	signedAt := time.Unix(timestamp, 0)
	if signedAt.After(now) {
		return fmt.Errorf("timestamp is in the future")
	}
	if now.Sub(signedAt) > MaxMessageAge {
		return fmt.Errorf("message is too old (max age: %s)", MaxMessageAge)
	}

	if !strings.Contains(message, "Nonce:") {
		logger.Warn("auth message missing nonce, replay protection is limited",
			"wallet", walletAddress)
	}
	return nil
}
