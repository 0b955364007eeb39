package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pollhub/internal/middleware"
	"pollhub/internal/models"
	"pollhub/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const streamHeartbeat = 15 * time.Second

// snapshotEvent describes the current counters of q as a VoteEvent.
func snapshotEvent(q *models.Question) notifications.VoteEvent {
	ev := notifications.VoteEvent{
		QuestionID: q.ID,
		TotalVotes: q.TotalVotes,
		Choices:    make([]notifications.ChoiceCount, 0, len(q.Choices)),
		At:         time.Now().UTC(),
	}
	for _, ch := range q.Choices {
		ev.Choices = append(ev.Choices, notifications.ChoiceCount{ID: ch.ID, Votes: ch.Votes})
	}
	return ev
}

// ResultsStream sends the current counters of a question followed by every
// later vote as server-sent events.
func (s *Server) ResultsStream(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Question")
	if err != nil {
		return err
	}
	ctx, cancel := serviceContext(c)
	q, err := s.pollService.Results(ctx, id)
	cancel()
	if err != nil {
		return err
	}

	events, unsubscribe, err := s.resultsHub.Subscribe(id)
	if errors.Is(err, notifications.ErrHubFull) || errors.Is(err, notifications.ErrHubClosed) {
		return fiber.NewError(fiber.StatusServiceUnavailable)
	}
	if err != nil {
		return err
	}

	done := s.shutdownCtx
	if done == nil {
		done = context.Background()
	}
	logCtx := c.UserContext()
	initial := snapshotEvent(q)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		if err := streamVotes(done, w, initial, events, streamHeartbeat); err != nil {
			middleware.Logger.DebugContext(logCtx, "results stream closed", "question_id", id, "error", err)
		}
	}))
	return nil
}

// streamVotes writes initial and then each event until the channel closes,
// ctx ends or the client goes away.
func streamVotes(ctx context.Context, w *bufio.Writer, initial notifications.VoteEvent, events <-chan notifications.VoteEvent, heartbeat time.Duration) error {
	if err := writeEvent(w, initial); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(w, ev); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w *bufio.Writer, ev notifications.VoteEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: vote\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
