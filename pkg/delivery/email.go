package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mysocial-labs/relay/pkg/models"
)

const emailSendURL = "https://api.resend.com/emails"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}

const emailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #f8f9fa; border-radius: 8px; padding: 24px; margin-bottom: 20px;">
        <h1 style="margin: 0 0 16px 0; font-size: 24px; color: #212529;">%s</h1>
        <p style="margin: 0; font-size: 16px; color: #495057;">%s</p>
    </div>
    <p style="font-size: 14px; color: #6c757d; margin-top: 20px;">
        This is a notification from MySocial.
    </p>
</body>
</html>`

// EmailClient delivers notification emails through a Resend-compatible
// HTTP API.
type EmailClient struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

// NewEmailClient builds a client from resolved credentials. Returns nil
// when email is not configured for this tenant.
func NewEmailClient(creds Credentials) *EmailClient {
	if creds.EmailAPIKey == "" || creds.EmailFrom == "" {
		return nil
	}
	return &EmailClient{
		apiKey:   creds.EmailAPIKey,
		from:     creds.EmailFrom,
		endpoint: emailSendURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// Send emails the notification. The recipient address is the user's
// wallet address; the email provider resolves it to a mailbox.
func (c *EmailClient) Send(ctx context.Context, userAddress string, n *models.Notification) error {
	html := fmt.Sprintf(emailTemplate, htmlEscape(n.Title), htmlEscape(n.Body))
	body, err := json.Marshal(emailRequest{
		From:    c.from,
		To:      []string{userAddress},
		Subject: n.Title,
		HTML:    html,
		Text:    n.Body,
	})
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider rejected send: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
