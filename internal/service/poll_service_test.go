package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"pollhub/internal/forms"
	"pollhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestion() *models.Question {
	return &models.Question{
		ID:           1,
		QuestionText: "Tea or coffee?",
		Choices: []models.Choice{
			{ID: 10, QuestionID: 1, ChoiceText: "Tea"},
			{ID: 11, QuestionID: 1, ChoiceText: "Coffee"},
		},
	}
}

func TestPollService_Detail(t *testing.T) {
	t.Parallel()
	repo := noopQuestionRepo()
	repo.getByIDFn = func(context.Context, uint) (*models.Question, error) { return sampleQuestion(), nil }
	repo.hasVotedFn = func(_ context.Context, _ uint, userID uint) (bool, error) { return userID == 5, nil }
	svc := NewPollService(repo, nil)

	_, voted, err := svc.Detail(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.True(t, voted)

	_, voted, err = svc.Detail(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.False(t, voted)

	repo.getByIDFn = func(_ context.Context, id uint) (*models.Question, error) {
		return nil, models.NewNotFoundError("Question", id)
	}
	_, _, err = svc.Detail(context.Background(), 99, 5)
	assert.True(t, models.IsNotFound(err))
}

func TestPollService_Vote(t *testing.T) {
	t.Parallel()

	t.Run("records and publishes", func(t *testing.T) {
		repo := noopQuestionRepo()
		voted := false
		repo.getByIDFn = func(context.Context, uint) (*models.Question, error) {
			q := sampleQuestion()
			if voted {
				q.TotalVotes = 1
				q.Choices[1].Votes = 1
			}
			return q, nil
		}
		repo.recordVoteFn = func(_ context.Context, questionID, choiceID, userID uint) error {
			assert.Equal(t, uint(1), questionID)
			assert.Equal(t, uint(11), choiceID)
			assert.Equal(t, uint(5), userID)
			voted = true
			return nil
		}
		pub := &publisherStub{}
		svc := NewPollService(repo, pub)
		fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		svc.now = func() time.Time { return fixed }

		q, err := svc.Vote(context.Background(), 1, 5, "11")
		require.NoError(t, err)
		assert.Equal(t, 1, q.TotalVotes)

		require.Len(t, pub.events, 1)
		ev := pub.events[0]
		assert.Equal(t, uint(11), ev.ChoiceID)
		assert.Equal(t, 1, ev.TotalVotes)
		assert.Equal(t, fixed, ev.At)
		assert.Len(t, ev.Choices, 2)
	})

	t.Run("publish failure does not fail the vote", func(t *testing.T) {
		repo := noopQuestionRepo()
		repo.getByIDFn = func(context.Context, uint) (*models.Question, error) { return sampleQuestion(), nil }
		svc := NewPollService(repo, &publisherStub{err: errBoom})

		_, err := svc.Vote(context.Background(), 1, 5, "10")
		assert.NoError(t, err)
	})

	for _, raw := range []string{"", "  ", "abc", "-1", "12", "99999999999"} {
		raw := raw
		t.Run("no selection "+raw, func(t *testing.T) {
			repo := noopQuestionRepo()
			repo.getByIDFn = func(context.Context, uint) (*models.Question, error) { return sampleQuestion(), nil }
			repo.recordVoteFn = func(context.Context, uint, uint, uint) error {
				t.Fatal("nothing may be recorded without a valid selection")
				return nil
			}
			pub := &publisherStub{}
			svc := NewPollService(repo, pub)

			q, err := svc.Vote(context.Background(), 1, 5, raw)
			assert.ErrorIs(t, err, ErrNoSelection)
			assert.NotNil(t, q, "question returned for re-rendering")
			assert.Empty(t, pub.events)
		})
	}

	t.Run("already voted", func(t *testing.T) {
		repo := noopQuestionRepo()
		repo.getByIDFn = func(context.Context, uint) (*models.Question, error) { return sampleQuestion(), nil }
		repo.recordVoteFn = func(context.Context, uint, uint, uint) error { return ErrAlreadyVoted }
		pub := &publisherStub{}

		q, err := NewPollService(repo, pub).Vote(context.Background(), 1, 5, "10")
		assert.ErrorIs(t, err, ErrAlreadyVoted)
		assert.NotNil(t, q)
		assert.Empty(t, pub.events)
	})

	t.Run("choice race maps to no selection", func(t *testing.T) {
		repo := noopQuestionRepo()
		repo.getByIDFn = func(context.Context, uint) (*models.Question, error) { return sampleQuestion(), nil }
		repo.recordVoteFn = func(context.Context, uint, uint, uint) error { return ErrChoiceNotFound }

		_, err := NewPollService(repo, nil).Vote(context.Background(), 1, 5, "10")
		assert.ErrorIs(t, err, ErrNoSelection)
	})

	t.Run("unknown question", func(t *testing.T) {
		repo := noopQuestionRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Question, error) {
			return nil, models.NewNotFoundError("Question", id)
		}
		_, err := NewPollService(repo, nil).Vote(context.Background(), 404, 5, "10")
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("storage error", func(t *testing.T) {
		repo := noopQuestionRepo()
		repo.getByIDFn = func(context.Context, uint) (*models.Question, error) { return sampleQuestion(), nil }
		repo.recordVoteFn = func(context.Context, uint, uint, uint) error { return models.NewInternalError(errBoom) }
		_, err := NewPollService(repo, nil).Vote(context.Background(), 1, 5, "10")
		assertInternalError(t, err)
	})
}

func pollForm(values map[string]string) *forms.PollForm {
	return forms.NewPollForm(func(k string) string { return values[k] })
}

func TestPollService_Create(t *testing.T) {
	t.Parallel()

	t.Run("stores provided choices in order", func(t *testing.T) {
		repo := noopQuestionRepo()
		var gotTexts []string
		var gotQuestion *models.Question
		repo.createWithChoicesFn = func(_ context.Context, q *models.Question, texts []string) error {
			q.ID = 3
			gotQuestion = q
			gotTexts = texts
			return nil
		}
		svc := NewPollService(repo, nil)
		fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		svc.now = func() time.Time { return fixed }

		q, ok, err := svc.Create(context.Background(), pollForm(map[string]string{
			forms.FieldQuestionText:  "Favourite season?",
			forms.ChoiceFieldName(0): "Spring",
			forms.ChoiceFieldName(2): "  ",
			forms.ChoiceFieldName(3): "Autumn",
		}))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint(3), q.ID)
		assert.Equal(t, []string{"Spring", "Autumn"}, gotTexts)
		assert.Equal(t, fixed, gotQuestion.PubDate)
		assert.Equal(t, 0, gotQuestion.TotalVotes)
	})

	t.Run("invalid form", func(t *testing.T) {
		repo := noopQuestionRepo()
		repo.createWithChoicesFn = func(context.Context, *models.Question, []string) error {
			t.Fatal("nothing may be stored for an invalid form")
			return nil
		}
		form := pollForm(map[string]string{
			forms.FieldQuestionText:  "ok",
			forms.ChoiceFieldName(1): strings.Repeat("x", models.ChoiceTextMaxLen+1),
		})
		_, ok, err := NewPollService(repo, nil).Create(context.Background(), form)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, form.Errors.Fields, forms.ChoiceFieldName(1))
	})
}
