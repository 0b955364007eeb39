package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pollhub/internal/messages"
	"pollhub/internal/models"
	"pollhub/internal/notifications"
	"pollhub/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/polls/3":              "/polls/3",
		"/polls/new?x=1":        "/polls/new?x=1",
		"//evil.example":        "/",
		"/\\evil.example":       "/",
		"https://evil.example/": "/",
		"javascript:alert(1)":   "/",
		"polls/3":               "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		key    messages.Key
	}{
		{models.NewNotFoundError("Question", 1), fiber.StatusNotFound, messages.NotFound},
		{models.NewInternalError(errors.New("db down")), fiber.StatusInternalServerError, messages.InternalError},
		{fiber.ErrForbidden, fiber.StatusForbidden, messages.RequestRejected},
		{fiber.NewError(fiber.StatusTooManyRequests), fiber.StatusTooManyRequests, messages.TooManyRequests},
		{fiber.ErrServiceUnavailable, fiber.StatusServiceUnavailable, messages.InternalError},
		{errors.New("plain"), fiber.StatusInternalServerError, messages.InternalError},
		{service.ErrNoSelection, fiber.StatusBadRequest, messages.RequestRejected},
		{fmt.Errorf("login: %w", service.ErrInvalidCredentials), fiber.StatusUnauthorized, messages.RequestRejected},
	}
	for _, tt := range tests {
		status, key := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.key, key, tt.err.Error())
	}
}

// parseEvents splits an SSE body into its data payloads.
func parseEvents(t *testing.T, raw string) []notifications.VoteEvent {
	t.Helper()
	var out []notifications.VoteEvent
	for _, block := range strings.Split(raw, "\n\n") {
		for _, line := range strings.Split(block, "\n") {
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var ev notifications.VoteEvent
				require.NoError(t, json.Unmarshal([]byte(data), &ev))
				out = append(out, ev)
			}
		}
	}
	return out
}

func TestStreamVotes_SendsSnapshotThenEvents(t *testing.T) {
	q := &models.Question{ID: 4, TotalVotes: 2, Choices: []models.Choice{{ID: 1, Votes: 2}, {ID: 2}}}
	events := make(chan notifications.VoteEvent, 2)
	events <- notifications.VoteEvent{QuestionID: 4, ChoiceID: 2, TotalVotes: 3,
		Choices: []notifications.ChoiceCount{{ID: 1, Votes: 2}, {ID: 2, Votes: 1}}}
	close(events)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, streamVotes(context.Background(), w, snapshotEvent(q), events, time.Hour))

	assert.Equal(t, 2, strings.Count(buf.String(), "event: vote\n"))
	got := parseEvents(t, buf.String())
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].TotalVotes)
	assert.Len(t, got[0].Choices, 2)
	assert.Equal(t, uint(2), got[1].ChoiceID)
	assert.Equal(t, 3, got[1].TotalVotes)
}

func TestStreamVotes_HeartbeatAndCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan notifications.VoteEvent)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	done := make(chan error, 1)
	go func() {
		done <- streamVotes(ctx, w, notifications.VoteEvent{QuestionID: 1}, events, 10*time.Millisecond)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	assert.Contains(t, buf.String(), ": ping\n\n")
}

func TestResultsHubReceivesVotes(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser()
	_ = b.register("alice").Body.Close()
	q := createPoll(t, env, b, "Live?", "Yes", "No")

	events, unsubscribe, err := env.srv.resultsHub.Subscribe(q.ID)
	require.NoError(t, err)
	defer unsubscribe()

	_ = b.postForm(fmt.Sprintf("/polls/%d/vote", q.ID), choiceValue(q.Choices[1].ID)).Body.Close()

	select {
	case ev := <-events:
		assert.Equal(t, q.ID, ev.QuestionID)
		assert.Equal(t, q.Choices[1].ID, ev.ChoiceID)
		assert.Equal(t, 1, ev.TotalVotes)
	case <-time.After(time.Second):
		t.Fatal("no vote event delivered")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser()

	resp := b.get("/health/live")
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = b.get("/health/ready")
	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &payload))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", payload.Status)
	assert.Equal(t, "disabled", payload.Checks["redis"])

	resp = b.get("/metrics")
	body := readBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "pollhub_registrations_total")
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	resp := env.browser().get("/accounts/login")
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}
