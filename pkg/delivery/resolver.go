// Package delivery fans notification jobs out to push and email
// channels with per-tenant credentials.
package delivery

import (
	"github.com/mysocial-labs/relay/pkg/config"
	"github.com/mysocial-labs/relay/pkg/models"
)

// Credentials is the effective channel configuration after applying a
// tenant's overrides on top of the global defaults. Resolution is
// per-field: a tenant that only overrides FCM still uses the global
// APNs and email settings.
type Credentials struct {
	APNSBundleID   string
	APNSKeyID      string
	APNSTeamID     string
	APNSKeyContent string
	FCMServerKey   string
	EmailAPIKey    string
	EmailFrom      string
}

// ResolveCredentials merges a tenant override (may be nil) with the
// global config.
func ResolveCredentials(global config.DeliveryConfig, override *models.PlatformDeliveryConfig) Credentials {
	creds := Credentials{
		APNSBundleID:   global.APNSBundleID,
		APNSKeyID:      global.APNSKeyID,
		APNSTeamID:     global.APNSTeamID,
		APNSKeyContent: global.APNSKeyContent,
		FCMServerKey:   global.FCMServerKey,
		EmailAPIKey:    global.EmailAPIKey,
		EmailFrom:      global.EmailFrom,
	}
	if override == nil {
		return creds
	}
	if v := override.APNSBundleID; v != nil && *v != "" {
		creds.APNSBundleID = *v
	}
	if v := override.APNSKeyID; v != nil && *v != "" {
		creds.APNSKeyID = *v
	}
	if v := override.APNSTeamID; v != nil && *v != "" {
		creds.APNSTeamID = *v
	}
	if v := override.APNSKeyContent; v != nil && *v != "" {
		creds.APNSKeyContent = *v
	}
	if v := override.FCMServerKey; v != nil && *v != "" {
		creds.FCMServerKey = *v
	}
	if v := override.EmailAPIKey; v != nil && *v != "" {
		creds.EmailAPIKey = *v
	}
	if v := override.EmailFrom; v != nil && *v != "" {
		creds.EmailFrom = *v
	}
	return creds
}
