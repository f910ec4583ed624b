package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mysocial-labs/relay/pkg/eventlog"
)

func TestRecipients(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		data      map[string]any
		want      []string
	}{
		{"reaction goes to post owner", "reaction.created", map[string]any{"post_owner": "0xaaa"}, []string{"0xaaa"}},
		{"comment goes to post owner", "comment.created", map[string]any{"post_owner": "0xaaa"}, []string{"0xaaa"}},
		{"repost goes to post owner", "repost.created", map[string]any{"post_owner": "0xaaa"}, []string{"0xaaa"}},
		{"bet goes to post owner", "prediction.bet_placed", map[string]any{"post_owner": "0xaaa"}, []string{"0xaaa"}},
		{"tip goes to recipient", "tip.created", map[string]any{"recipient": "0xbbb"}, []string{"0xbbb"}},
		{"payout goes to recipient", "prediction.payout", map[string]any{"recipient": "0xbbb"}, []string{"0xbbb"}},
		{"ownership goes to new owner", "ownership.transferred", map[string]any{"new_owner": "0xccc"}, []string{"0xccc"}},
		{"follow goes to followed", "follow.created", map[string]any{"following_address": "0xddd"}, []string{"0xddd"}},
		{"unfollow goes to followed", "unfollow.created", map[string]any{"following_address": "0xddd"}, []string{"0xddd"}},
		{"token buy goes to pool owner", "spt.token_bought", map[string]any{"pool_owner": "0xeee"}, []string{"0xeee"}},
		{"reservation goes to associated owner", "spt.reservation_created", map[string]any{"associated_owner": "0xfff"}, []string{"0xfff"}},
		{"approval goes to submitter", "governance.proposal_approved", map[string]any{"submitter": "0x111"}, []string{"0x111"}},
		{"moderator add goes to moderator", "platform.moderator_added", map[string]any{"moderator_address": "0x222"}, []string{"0x222"}},
		{"message goes to recipient", "message.created", map[string]any{"recipient_address": "0x333"}, []string{"0x333"}},

		{"post created has no recipient", "post.created", map[string]any{"author": "0xaaa"}, nil},
		{"proposal submitted has no recipient", "governance.proposal_submitted", map[string]any{"submitter": "0xaaa"}, nil},
		{"user joined has no recipient", "platform.user_joined", map[string]any{"user": "0xaaa"}, nil},
		{"user left has no recipient", "platform.user_left", map[string]any{"user": "0xaaa"}, nil},
		{"unknown type has no recipient", "mystery.event", map[string]any{"post_owner": "0xaaa"}, nil},
		{"missing field yields nothing", "reaction.created", map[string]any{}, nil},
		{"empty field yields nothing", "tip.created", map[string]any{"recipient": ""}, nil},
		{"non-string field yields nothing", "tip.created", map[string]any{"recipient": float64(7)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &eventlog.Envelope{EventType: tt.eventType, EventData: tt.data}
			assert.Equal(t, tt.want, Recipients(env))
		})
	}
}
