package delivery

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mysocial-labs/relay/pkg/models"
)

const (
	apnsProduction = "https://api.push.apple.com"
	apnsSandbox    = "https://api.sandbox.push.apple.com"

	// Apple wants provider tokens refreshed between 20 and 60 minutes.
	apnsTokenTTL = 50 * time.Minute
)

// apnsEndpoint picks the environment from the bundle id: development
// bundles carry "sandbox" or "dev" in their identifier.
func apnsEndpoint(bundleID string) string {
	if strings.Contains(bundleID, "sandbox") || strings.Contains(bundleID, "dev") {
		return apnsSandbox
	}
	return apnsProduction
}

// APNSClient sends notifications over APNs HTTP/2 with token-based
// authentication.
type APNSClient struct {
	bundleID string
	keyID    string
	teamID   string
	key      *ecdsa.PrivateKey
	endpoint string
	client   *http.Client

	mu          sync.Mutex
	cachedToken string
	tokenMinted time.Time
}

// NewAPNSClient builds a client from resolved credentials. Returns nil
// when APNs is not configured for this tenant.
func NewAPNSClient(creds Credentials) (*APNSClient, error) {
	if creds.APNSBundleID == "" || creds.APNSKeyID == "" || creds.APNSTeamID == "" || creds.APNSKeyContent == "" {
		return nil, nil
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(creds.APNSKeyContent))
	if err != nil {
		return nil, fmt.Errorf("parse apns key: %w", err)
	}
	return &APNSClient{
		bundleID: creds.APNSBundleID,
		keyID:    creds.APNSKeyID,
		teamID:   creds.APNSTeamID,
		key:      key,
		endpoint: apnsEndpoint(creds.APNSBundleID),
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type apnsAps struct {
	Alert    apnsAlert `json:"alert"`
	Badge    *uint32   `json:"badge,omitempty"`
	Sound    string    `json:"sound,omitempty"`
	Category string    `json:"category,omitempty"`
}

type apnsPayload struct {
	Aps apnsAps `json:"aps"`
}

// Send pushes one notification to a device token.
func (c *APNSClient) Send(ctx context.Context, deviceToken string, n *models.Notification) error {
	payload := apnsPayload{Aps: apnsAps{Alert: apnsAlert{Title: n.Title, Body: n.Body}}}
	if n.EventData != nil {
		if badge, ok := n.EventData["badge"].(float64); ok && badge >= 0 {
			b := uint32(badge)
			payload.Aps.Badge = &b
		}
		if sound, ok := n.EventData["sound"].(string); ok {
			payload.Aps.Sound = sound
		}
		if category, ok := n.EventData["category"].(string); ok {
			payload.Aps.Category = category
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode apns payload: %w", err)
	}

	token, err := c.providerToken()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/3/device/%s", c.endpoint, deviceToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build apns request: %w", err)
	}
	req.Header.Set("authorization", "bearer "+token)
	req.Header.Set("apns-topic", c.bundleID)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("content-type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("apns request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("apns rejected push: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// providerToken returns a cached ES256 provider token, minting a fresh
// one when the cached token nears Apple's age limit.
func (c *APNSClient) providerToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedToken != "" && time.Since(c.tokenMinted) < apnsTokenTTL {
		return c.cachedToken, nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.teamID,
		"iat": now.Unix(),
	})
	token.Header["kid"] = c.keyID

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign apns provider token: %w", err)
	}
	c.cachedToken = signed
	c.tokenMinted = now
	return signed, nil
}
