// Package notifications carries vote events from the process that recorded a
// vote to every process streaming live results.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"pollhub/internal/cache"
	"pollhub/internal/observability"

	"github.com/redis/go-redis/v9"
)

// VoteEvent describes the counters of a question right after a vote.
type VoteEvent struct {
	QuestionID uint          `json:"question_id"`
	ChoiceID   uint          `json:"choice_id"`
	TotalVotes int           `json:"total_votes"`
	Choices    []ChoiceCount `json:"choices"`
	At         time.Time     `json:"at"`
}

// ChoiceCount is one choice's vote counter inside a VoteEvent.
type ChoiceCount struct {
	ID    uint `json:"id"`
	Votes int  `json:"votes"`
}

const questionVotesPattern = "polls:question:*:votes"

// Notifier publishes vote events on Redis. Without Redis it hands events
// straight to the local hub so a single process still streams results.
type Notifier struct {
	rdb   *redis.Client
	local *Hub
}

// NewNotifier creates a Notifier. Either argument may be nil.
func NewNotifier(rdb *redis.Client, local *Hub) *Notifier {
	return &Notifier{rdb: rdb, local: local}
}

// PublishVote announces ev to every subscriber of its question.
func (n *Notifier) PublishVote(ctx context.Context, ev VoteEvent) error {
	if n == nil {
		return nil
	}
	if n.rdb == nil {
		if n.local != nil {
			n.local.Broadcast(ev)
		}
		return nil
	}

	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "publish")
	defer span.End()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal vote event: %w", err)
	}
	if err := n.rdb.Publish(ctx, cache.QuestionVotesChannel(ev.QuestionID), payload).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish vote event: %w", err)
	}
	return nil
}

// StartVoteSubscriber pattern-subscribes to every question's vote channel and
// calls onEvent for each decodable message until ctx is done.
func (n *Notifier) StartVoteSubscriber(ctx context.Context, onEvent func(VoteEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, questionVotesPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", questionVotesPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev VoteEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					observability.LogAsyncOperationError(ctx, "vote_subscriber", err,
						map[string]any{"channel": msg.Channel})
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in VoteSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
