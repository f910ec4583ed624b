package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authMessage(wallet string, ts int64, nonce string) string {
	msg := fmt.Sprintf("Sign in to MySocial Relay\n\nWallet: %s", wallet)
	if nonce != "" {
		msg += "\nNonce: " + nonce
	}
	return msg + fmt.Sprintf("\nTimestamp: %d", ts)
}

func TestValidateAuthMessage(t *testing.T) {
	wallet := "0x1234567890123456789012345678901234567890"
	now := time.Unix(1_700_000_000, 0)
	logger := slog.Default()

	t.Run("valid message", func(t *testing.T) {
		msg := authMessage(wallet, now.Unix()-10, "abc123")
		assert.NoError(t, ValidateAuthMessage(msg, wallet, now, logger))
	})

	t.Run("valid without nonce", func(t *testing.T) {
		msg := authMessage(wallet, now.Unix()-10, "")
		assert.NoError(t, ValidateAuthMessage(msg, wallet, now, logger))
	})

	t.Run("missing prefix", func(t *testing.T) {
		msg := fmt.Sprintf("Hello\n\nWallet: %s\nTimestamp: %d", wallet, now.Unix())
		err := ValidateAuthMessage(msg, wallet, now, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prefix")
	})

	t.Run("wrong wallet", func(t *testing.T) {
		msg := authMessage("0xother", now.Unix()-10, "abc")
		err := ValidateAuthMessage(msg, wallet, now, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wallet address")
	})

	t.Run("missing timestamp", func(t *testing.T) {
		msg := fmt.Sprintf("Sign in to MySocial Relay\n\nWallet: %s", wallet)
		err := ValidateAuthMessage(msg, wallet, now, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timestamp")
	})

	t.Run("garbage timestamp", func(t *testing.T) {
		msg := fmt.Sprintf("Sign in to MySocial Relay\n\nWallet: %s\nTimestamp: soon", wallet)
		err := ValidateAuthMessage(msg, wallet, now, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timestamp format")
	})

	t.Run("future timestamp rejected", func(t *testing.T) {
		msg := authMessage(wallet, now.Unix()+60, "abc")
		err := ValidateAuthMessage(msg, wallet, now, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "future")
	})

	t.Run("stale message rejected", func(t *testing.T) {
		msg := authMessage(wallet, now.Unix()-400, "abc")
		err := ValidateAuthMessage(msg, wallet, now, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too old")
	})

	t.Run("exactly at max age accepted", func(t *testing.T) {
		msg := authMessage(wallet, now.Unix()-300, "abc")
		assert.NoError(t, ValidateAuthMessage(msg, wallet, now, logger))
	})
}

func TestWalletVerifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	wallet := DeriveAddress(0x00, pub)
	message := []byte("Sign in to MySocial Relay\n\nWallet: " + wallet)
	v := NewWalletVerifier()

	t.Run("valid signature", func(t *testing.T) {
		sig := Sign(message, priv)
		assert.NoError(t, v.Verify(message, sig, wallet))
	})

	t.Run("address compare is case-insensitive", func(t *testing.T) {
		sig := Sign(message, priv)
		assert.NoError(t, v.Verify(message, sig, "0X"+strings.ToUpper(wallet[2:])))
	})

	t.Run("tampered message fails", func(t *testing.T) {
		sig := Sign(message, priv)
		err := v.Verify([]byte("different message"), sig, wallet)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verification failed")
	})

	t.Run("wrong wallet fails", func(t *testing.T) {
		sig := Sign(message, priv)
		err := v.Verify(message, sig, "0xdeadbeef")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match")
	})

	t.Run("not base64 fails", func(t *testing.T) {
		assert.Error(t, v.Verify(message, "%%%", wallet))
	})

	t.Run("truncated signature fails", func(t *testing.T) {
		assert.Error(t, v.Verify(message, "YWJj", wallet))
	})

	t.Run("unknown scheme flag fails", func(t *testing.T) {
		raw := make([]byte, signatureLen)
		raw[0] = 0x05
		err := v.Verify(message, base64.StdEncoding.EncodeToString(raw), wallet)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	now := time.Now()

	t.Run("round trip", func(t *testing.T) {
		token, err := issuer.Mint("0xabc", now)
		require.NoError(t, err)

		addr, err := issuer.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "0xabc", addr)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token, err := issuer.Mint("0xabc", now.Add(-TokenTTL-time.Hour))
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, err := issuer.Mint("0xabc", now)
		require.NoError(t, err)

		_, err = NewTokenIssuer("other-secret").Parse(token)
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.Error(t, err)
	})
}
