package notify

import (
	"fmt"
	"strconv"

	"github.com/mysocial-labs/relay/pkg/eventlog"
)

// FormatNotification renders a title and body for the event. Formatting
// is best-effort and never fails: missing actor fields render as
// "Someone" and missing amounts as 0.
func FormatNotification(env *eventlog.Envelope) (title, body string) {
	switch env.EventType {
	case "reaction.created":
		reaction := fieldOr(env, "reaction", "reacted")
		return "New Reaction", fmt.Sprintf("Someone %s to your post", reaction)
	case "comment.created":
		return "New Comment", "Someone commented on your post"
	case "repost.created":
		return "New Repost", "Someone reposted your post"
	case "tip.created":
		tipper := fieldOr(env, "tipper", "Someone")
		return "New Tip", fmt.Sprintf("%s tipped you %s MYSO", tipper, amountField(env, "amount"))
	case "ownership.transferred":
		return "Post Ownership", "A post was transferred to you"
	case "follow.created":
		return "New Follower", "Someone started following you"
	case "unfollow.created":
		return "Follower Left", "Someone unfollowed you"
	case "spt.token_bought":
		return "Tokens Bought", "Someone bought your social proof tokens"
	case "spt.token_sold":
		return "Tokens Sold", "Someone sold your social proof tokens"
	case "spt.tokens_added":
		return "Tokens Added", "Tokens were added to your pool"
	case "spt.reservation_created":
		return "Tokens Reserved", "Someone reserved your social proof tokens"
	case "governance.proposal_approved":
		return "Proposal Approved", "Your proposal was approved"
	case "governance.proposal_rejected":
		return "Proposal Rejected", "Your proposal was rejected"
	case "governance.proposal_rejected_by_community":
		return "Proposal Rejected", "Your proposal was rejected by the community"
	case "governance.proposal_implemented":
		return "Proposal Implemented", "Your proposal was implemented"
	case "platform.moderator_added":
		return "Moderator Added", "You were added as a moderator"
	case "platform.moderator_removed":
		return "Moderator Removed", "You were removed as a moderator"
	case "prediction.bet_placed":
		return "New Bet", "Someone placed a bet on your post"
	case "prediction.resolved":
		return "Prediction Resolved", "A prediction on your post was resolved"
	case "prediction.payout":
		return "Prediction Payout", fmt.Sprintf("You received a payout of %s MYSO", amountField(env, "amount"))
	case "message.created":
		return "New Message", "You have a new message"
	default:
		return "Notification", "You have a new notification"
	}
}

func fieldOr(env *eventlog.Envelope, name, fallback string) string {
	if v := env.StringField(name); v != "" {
		return v
	}
	return fallback
}

// amountField renders a numeric payload field, tolerating strings and
// absent values.
func amountField(env *eventlog.Envelope, name string) string {
	if env.EventData == nil {
		return "0"
	}
	switch v := env.EventData[name].(type) {
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		if v != "" {
			return v
		}
	}
	return "0"
}
