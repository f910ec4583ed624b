package api

// AuthTokenRequest is the body of POST /api/v1/auth/token.
type AuthTokenRequest struct {
	WalletAddress string `json:"wallet_address"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

// SendMessageRequest is the body of POST /api/v1/messages.
type SendMessageRequest struct {
	RecipientAddress string `json:"recipient_address"`
	Content          string `json:"content"`
}

// UpdatePreferencesRequest is the body of POST /api/v1/preferences.
type UpdatePreferencesRequest struct {
	PushEnabled       bool            `json:"push_enabled"`
	EmailEnabled      bool            `json:"email_enabled"`
	NotificationTypes map[string]bool `json:"notification_types"`
}

// RegisterDeviceTokenRequest is the body of POST /api/v1/device-tokens.
type RegisterDeviceTokenRequest struct {
	DeviceToken string  `json:"device_token"`
	Platform    string  `json:"platform"`
	AppVersion  *string `json:"app_version,omitempty"`
}
