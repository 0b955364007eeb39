package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"pollhub/internal/forms"
	"pollhub/internal/models"
	"pollhub/internal/notifications"
	"pollhub/internal/observability"
	"pollhub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// VotePublisher announces recorded votes to live result streams.
type VotePublisher interface {
	PublishVote(ctx context.Context, ev notifications.VoteEvent) error
}

type PollService struct {
	questions repository.QuestionRepository
	publisher VotePublisher
	tracer    *observability.TraceLayer
	now       func() time.Time
}

// NewPollService wires the poll use cases. publisher may be nil.
func NewPollService(questions repository.QuestionRepository, publisher VotePublisher) *PollService {
	return &PollService{
		questions: questions,
		publisher: publisher,
		tracer:    observability.GetTraceLayer(),
		now:       time.Now,
	}
}

// List returns every question, newest first.
func (s *PollService) List(ctx context.Context) ([]models.Question, error) {
	return s.questions.List(ctx)
}

// Detail loads a question for the voting page and reports whether userID
// already voted on it.
func (s *PollService) Detail(ctx context.Context, questionID, userID uint) (*models.Question, bool, error) {
	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, false, err
	}
	if userID == 0 {
		return q, false, nil
	}
	voted, err := s.questions.HasVoted(ctx, questionID, userID)
	if err != nil {
		return nil, false, err
	}
	return q, voted, nil
}

// Results loads a question with its counters.
func (s *PollService) Results(ctx context.Context, questionID uint) (*models.Question, error) {
	return s.questions.GetByID(ctx, questionID)
}

// Vote records userID's choice. rawChoice is the submitted choice id; blank,
// malformed or foreign ids yield ErrNoSelection. The returned question is
// always the current state, also alongside ErrNoSelection and ErrAlreadyVoted.
func (s *PollService) Vote(ctx context.Context, questionID, userID uint, rawChoice string) (*models.Question, error) {
	ctx, span := s.tracer.TraceServiceToRepository(ctx, "PollService", "Vote")
	defer span.End()
	observability.AddTraceAttributesToContext(ctx,
		attribute.Int64("poll.question_id", int64(questionID)),
		attribute.Int64("poll.user_id", int64(userID)),
	)

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	choiceID, ok := parseChoice(q, rawChoice)
	if !ok {
		observability.RecordVote(observability.VoteResultInvalidChoice)
		return q, ErrNoSelection
	}

	err = s.questions.RecordVote(ctx, questionID, choiceID, userID)
	switch {
	case errors.Is(err, ErrAlreadyVoted):
		observability.RecordVote(observability.VoteResultAlreadyVoted)
		return q, ErrAlreadyVoted
	case errors.Is(err, ErrChoiceNotFound):
		observability.RecordVote(observability.VoteResultInvalidChoice)
		return q, ErrNoSelection
	case err != nil:
		observability.RecordErrorInContext(ctx, err)
		return nil, err
	}
	observability.RecordVote(observability.VoteResultRecorded)

	updated, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, choiceID)
	return updated, nil
}

func (s *PollService) publish(ctx context.Context, q *models.Question, choiceID uint) {
	if s.publisher == nil {
		return
	}
	ev := notifications.VoteEvent{
		QuestionID: q.ID,
		ChoiceID:   choiceID,
		TotalVotes: q.TotalVotes,
		Choices:    make([]notifications.ChoiceCount, 0, len(q.Choices)),
		At:         s.now().UTC(),
	}
	for _, c := range q.Choices {
		ev.Choices = append(ev.Choices, notifications.ChoiceCount{ID: c.ID, Votes: c.Votes})
	}
	if err := s.publisher.PublishVote(ctx, ev); err != nil {
		observability.LogAsyncOperationError(ctx, "publish_vote", err,
			map[string]any{"question_id": q.ID})
	}
}

func parseChoice(q *models.Question, raw string) (uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	for _, c := range q.Choices {
		if c.ID == uint(id) {
			return c.ID, true
		}
	}
	return 0, false
}

// Create validates the poll form and stores the question with its non-blank
// choices. A false result with a nil error means the form carries errors.
func (s *PollService) Create(ctx context.Context, form *forms.PollForm) (*models.Question, bool, error) {
	ok, err := form.Validate(ctx)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	if !ok {
		return nil, false, nil
	}

	q := &models.Question{
		QuestionText: form.QuestionText,
		PubDate:      s.now().UTC(),
	}
	if err := s.questions.CreateWithChoices(ctx, q, form.ProvidedChoices()); err != nil {
		return nil, false, err
	}
	observability.QuestionsCreatedTotal.Inc()
	return q, true, nil
}
