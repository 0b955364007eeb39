package repository

import (
	"context"
	"errors"
	"time"

	"pollhub/internal/database"
	"pollhub/internal/models"
	"pollhub/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAlreadyVoted is returned when the user is already in the question's voter set.
	ErrAlreadyVoted = errors.New("user already voted on this question")
	// ErrChoiceNotFound is returned when the choice does not exist or belongs to another question.
	ErrChoiceNotFound = errors.New("choice does not belong to question")
)

// QuestionRepository defines persistence operations for questions, their
// choices and the voter set.
type QuestionRepository interface {
	List(ctx context.Context) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	HasVoted(ctx context.Context, questionID, userID uint) (bool, error)
	CreateWithChoices(ctx context.Context, question *models.Question, choiceTexts []string) error
	RecordVote(ctx context.Context, questionID, choiceID, userID uint) error
}

type questionRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	tracer  *observability.TraceLayer
	log     *observability.RepoLogger
}

// NewQuestionRepository returns a new QuestionRepository implementation.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics(db),
		tracer:  observability.GetTraceLayer(),
		log:     observability.NewRepoLogger("questions"),
	}
}

// List returns every question, newest publication first.
func (r *questionRepository) List(ctx context.Context) ([]models.Question, error) {
	defer r.metrics.TrackQuery("list", "questions")()

	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Order("pub_date DESC").
		Order("id DESC").
		Find(&questions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return questions, nil
}

// GetByID loads a question with its choices in creation order.
func (r *questionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	defer r.metrics.TrackQuery("get_by_id", "questions")()

	var question models.Question
	err := r.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Question", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &question, nil
}

func (r *questionRepository) HasVoted(ctx context.Context, questionID, userID uint) (bool, error) {
	defer r.metrics.TrackQuery("has_voted", "question_voters")()

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuestionVoter{}).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// CreateWithChoices persists the question and then its choices in order,
// all in one transaction. A zero PubDate is set to now.
func (r *questionRepository) CreateWithChoices(ctx context.Context, question *models.Question, choiceTexts []string) error {
	defer r.metrics.TrackQuery("create_with_choices", "questions")()

	if question.PubDate.IsZero() {
		question.PubDate = time.Now().UTC()
	}
	question.TotalVotes = 0
	question.Choices = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(question).Error; err != nil {
			return models.NewInternalError(err)
		}
		for _, text := range choiceTexts {
			choice := models.Choice{QuestionID: question.ID, ChoiceText: text}
			if err := tx.Create(&choice).Error; err != nil {
				return models.NewInternalError(err)
			}
			question.Choices = append(question.Choices, choice)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"question_id": question.ID, "choices": len(choiceTexts)})
	return nil
}

// RecordVote increments the choice and question counters and adds the user to
// the voter set in a single transaction. Nothing changes when the choice is
// not part of the question or the user has already voted.
func (r *questionRepository) RecordVote(ctx context.Context, questionID, choiceID, userID uint) error {
	defer r.metrics.TrackQuery("record_vote", "choices")()
	ctx, span := r.tracer.TraceRepositoryMethod(ctx, "RecordVote", "choices")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("poll.question_id", int64(questionID)),
		attribute.Int64("poll.choice_id", int64(choiceID)),
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Choice{}).
			Where("id = ? AND question_id = ?", choiceID, questionID).
			UpdateColumn("votes", gorm.Expr("votes + ?", 1))
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrChoiceNotFound
		}

		res = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.QuestionVoter{QuestionID: questionID, UserID: userID})
		if res.Error != nil {
			if database.IsUniqueViolation(res.Error) {
				return ErrAlreadyVoted
			}
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyVoted
		}

		res = tx.Model(&models.Question{}).
			Where("id = ?", questionID).
			UpdateColumn("total_votes", gorm.Expr("total_votes + ?", 1))
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected != 1 {
			return models.NewNotFoundError("Question", questionID)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAlreadyVoted) && !errors.Is(err, ErrChoiceNotFound) {
		span.RecordError(err)
		r.log.LogError(ctx, err, "record_vote")
	}
	return err
}
