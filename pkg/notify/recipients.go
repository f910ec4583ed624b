// Package notify turns platform events into per-user notifications and
// delivery jobs.
package notify

import "github.com/mysocial-labs/relay/pkg/eventlog"

// recipientFields maps event types to the event_data field naming the
// user to notify. Types mapped to "" are broadcast-style events with no
// individual recipient.
var recipientFields = map[string]string{
	"reaction.created":        "post_owner",
	"comment.created":         "post_owner",
	"repost.created":          "post_owner",
	"prediction.bet_placed":   "post_owner",
	"prediction.resolved":     "post_owner",
	"tip.created":             "recipient",
	"prediction.payout":       "recipient",
	"ownership.transferred":   "new_owner",
	"follow.created":          "following_address",
	"unfollow.created":        "following_address",
	"spt.token_bought":        "pool_owner",
	"spt.token_sold":          "pool_owner",
	"spt.tokens_added":        "pool_owner",
	"spt.reservation_created": "associated_owner",

	"governance.proposal_approved":              "submitter",
	"governance.proposal_rejected":              "submitter",
	"governance.proposal_rejected_by_community": "submitter",
	"governance.proposal_implemented":           "submitter",

	"platform.moderator_added":   "moderator_address",
	"platform.moderator_removed": "moderator_address",
	"message.created":            "recipient_address",

	"post.created":                  "",
	"governance.proposal_submitted": "",
	"platform.user_joined":          "",
	"platform.user_left":            "",
}

// Recipients extracts who to notify. Unknown event types and events
// whose recipient field is missing or empty yield nothing.
func Recipients(env *eventlog.Envelope) []string {
	field, ok := recipientFields[env.EventType]
	if !ok || field == "" {
		return nil
	}
	addr := env.StringField(field)
	if addr == "" {
		return nil
	}
	return []string{addr}
}
