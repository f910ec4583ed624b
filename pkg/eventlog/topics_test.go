package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicForEventType(t *testing.T) {
	tests := []struct {
		eventType string
		topic     string
	}{
		{"reaction.created", TopicPostReaction},
		{"reaction.removed", TopicPostReaction},
		{"repost.created", TopicPostRepost},
		{"tip.created", TopicPostTip},
		{"post.created", TopicPostCreated},
		{"ownership.transferred", TopicPostOwnership},
		{"comment.created", TopicCommentCreated},
		{"message.created", TopicMessageCreated},
		{"follow.created", TopicFollowCreated},
		{"unfollow.created", TopicUnfollowCreated},
		{"spt.token_bought", TopicSPTCreated},
		{"governance.proposal_submitted", TopicGovernanceCreated},
		{"prediction.bet_placed", TopicPredictionCreated},
		{"platform.user_joined", TopicPlatformCreated},
		{"mystery.event", TopicUnknown},
		{"", TopicUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.topic, TopicForEventType(tt.eventType))
		})
	}
}

func TestNotifyTopicsExcludeMessages(t *testing.T) {
	for _, topic := range NotifyTopics() {
		assert.NotEqual(t, TopicMessageCreated, topic)
		assert.NotEqual(t, TopicUnknown, topic)
	}
	assert.Len(t, NotifyTopics(), 12)
}
