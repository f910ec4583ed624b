package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mysocial-labs/relay/pkg/models"
)

const fcmSendURL = "https://fcm.googleapis.com/fcm/send"

// FCMClient sends notifications through Firebase Cloud Messaging.
type FCMClient struct {
	serverKey string
	endpoint  string
	client    *http.Client
}

// NewFCMClient builds a client from resolved credentials. Returns nil
// when FCM is not configured for this tenant.
func NewFCMClient(creds Credentials) *FCMClient {
	if creds.FCMServerKey == "" {
		return nil
	}
	return &FCMClient{
		serverKey: creds.FCMServerKey,
		endpoint:  fcmSendURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmRequest struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
	Data         map[string]any  `json:"data,omitempty"`
}

// Send pushes one notification to a device token.
func (c *FCMClient) Send(ctx context.Context, deviceToken string, n *models.Notification) error {
	body, err := json.Marshal(fcmRequest{
		To:           deviceToken,
		Notification: fcmNotification{Title: n.Title, Body: n.Body},
		Data:         n.EventData,
	})
	if err != nil {
		return fmt.Errorf("encode fcm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fcm rejected push: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
