package cache

import (
	"fmt"
	"time"
)

const (
	RevokedSessionKeyPrefix = "session:revoked:%s"
	RateLimitKeyPrefix      = "rl:%s:%s"
	QuestionVotesChannelFmt = "polls:question:%d:votes"
)

// RateLimitWindow is the default window for login and registration throttling.
const RateLimitWindow = time.Minute

func RevokedSessionKey(tokenID string) string {
	return fmt.Sprintf(RevokedSessionKeyPrefix, tokenID)
}

func RateLimitKey(resource, id string) string {
	return fmt.Sprintf(RateLimitKeyPrefix, resource, id)
}

// QuestionVotesChannel is the pub/sub channel carrying vote events for a question.
func QuestionVotesChannel(questionID uint) string {
	return fmt.Sprintf(QuestionVotesChannelFmt, questionID)
}
