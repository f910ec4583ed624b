package eventlog

import "strings"

// Topic names. Producers route by event type prefix; consumers subscribe
// by component.
const (
	TopicPostCreated       = "events.post.created"
	TopicPostReaction      = "events.post.reaction"
	TopicPostRepost        = "events.post.repost"
	TopicPostTip           = "events.post.tip"
	TopicPostOwnership     = "events.post.ownership"
	TopicCommentCreated    = "events.comment.created"
	TopicMessageCreated    = "events.message.created"
	TopicFollowCreated     = "events.follow.created"
	TopicUnfollowCreated   = "events.unfollow.created"
	TopicSPTCreated        = "events.spt.created"
	TopicGovernanceCreated = "events.governance.created"
	TopicPredictionCreated = "events.prediction.created"
	TopicPlatformCreated   = "events.platform.created"
	TopicUnknown           = "events.unknown"

	// TopicDelivery carries delivery jobs from the notification worker to
	// the delivery worker, keyed by user address.
	TopicDelivery = "notifications.delivery"
)

// TopicForEventType routes an event type to its topic by prefix.
// Unrecognized types land on events.unknown so they stay observable.
func TopicForEventType(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "reaction."):
		return TopicPostReaction
	case strings.HasPrefix(eventType, "repost."):
		return TopicPostRepost
	case strings.HasPrefix(eventType, "tip."):
		return TopicPostTip
	case strings.HasPrefix(eventType, "post."):
		return TopicPostCreated
	case strings.HasPrefix(eventType, "ownership."):
		return TopicPostOwnership
	case strings.HasPrefix(eventType, "comment."):
		return TopicCommentCreated
	case strings.HasPrefix(eventType, "message."):
		return TopicMessageCreated
	case strings.HasPrefix(eventType, "follow."):
		return TopicFollowCreated
	case strings.HasPrefix(eventType, "unfollow."):
		return TopicUnfollowCreated
	case strings.HasPrefix(eventType, "spt."):
		return TopicSPTCreated
	case strings.HasPrefix(eventType, "governance."):
		return TopicGovernanceCreated
	case strings.HasPrefix(eventType, "prediction."):
		return TopicPredictionCreated
	case strings.HasPrefix(eventType, "platform."):
		return TopicPlatformCreated
	default:
		return TopicUnknown
	}
}

// NotifyTopics lists everything the notification worker consumes.
// events.message.created is deliberately absent: message traffic belongs
// to the messaging worker.
func NotifyTopics() []string {
	return []string{
		TopicPostReaction,
		TopicPostRepost,
		TopicPostTip,
		TopicPostCreated,
		TopicPostOwnership,
		TopicCommentCreated,
		TopicSPTCreated,
		TopicGovernanceCreated,
		TopicPredictionCreated,
		TopicFollowCreated,
		TopicUnfollowCreated,
		TopicPlatformCreated,
	}
}
