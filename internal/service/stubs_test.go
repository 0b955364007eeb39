package service

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"pollhub/internal/models"
	"pollhub/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	usernameExistsFn func(context.Context, string, uint) (bool, error)
	emailExistsFn    func(context.Context, string, uint) (bool, error)
	createFn         func(context.Context, *models.User) error
	updateFn         func(context.Context, *models.User) error
	deleteFn         func(context.Context, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) UsernameExists(ctx context.Context, username string, excludeID uint) (bool, error) {
	return s.usernameExistsFn(ctx, username, excludeID)
}
func (s *userRepoStub) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	return s.emailExistsFn(ctx, email, excludeID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:        func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn:  func(context.Context, string) (*models.User, error) { return nil, nil },
		usernameExistsFn: func(context.Context, string, uint) (bool, error) { return false, nil },
		emailExistsFn:    func(context.Context, string, uint) (bool, error) { return false, nil },
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		updateFn: func(context.Context, *models.User) error { return nil },
		deleteFn: func(context.Context, uint) error { return nil },
	}
}

type questionRepoStub struct {
	listFn              func(context.Context) ([]models.Question, error)
	getByIDFn           func(context.Context, uint) (*models.Question, error)
	hasVotedFn          func(context.Context, uint, uint) (bool, error)
	createWithChoicesFn func(context.Context, *models.Question, []string) error
	recordVoteFn        func(context.Context, uint, uint, uint) error
}

func (s *questionRepoStub) List(ctx context.Context) ([]models.Question, error) {
	return s.listFn(ctx)
}
func (s *questionRepoStub) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	return s.getByIDFn(ctx, id)
}
func (s *questionRepoStub) HasVoted(ctx context.Context, questionID, userID uint) (bool, error) {
	return s.hasVotedFn(ctx, questionID, userID)
}
func (s *questionRepoStub) CreateWithChoices(ctx context.Context, q *models.Question, texts []string) error {
	return s.createWithChoicesFn(ctx, q, texts)
}
func (s *questionRepoStub) RecordVote(ctx context.Context, questionID, choiceID, userID uint) error {
	return s.recordVoteFn(ctx, questionID, choiceID, userID)
}

func noopQuestionRepo() *questionRepoStub {
	return &questionRepoStub{
		listFn:              func(context.Context) ([]models.Question, error) { return nil, nil },
		getByIDFn:           func(_ context.Context, id uint) (*models.Question, error) { return &models.Question{ID: id}, nil },
		hasVotedFn:          func(context.Context, uint, uint) (bool, error) { return false, nil },
		createWithChoicesFn: func(context.Context, *models.Question, []string) error { return nil },
		recordVoteFn:        func(context.Context, uint, uint, uint) error { return nil },
	}
}

type avatarStoreStub struct {
	saved   []string
	removed []string
	saveErr error
}

func (s *avatarStoreStub) Save(_ context.Context, fh *multipart.FileHeader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	rel := "avatars/" + fh.Filename
	s.saved = append(s.saved, rel)
	return rel, nil
}

func (s *avatarStoreStub) Remove(rel string) {
	if rel != "" {
		s.removed = append(s.removed, rel)
	}
}

type publisherStub struct {
	events []notifications.VoteEvent
	err    error
}

func (p *publisherStub) PublishVote(_ context.Context, ev notifications.VoteEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

var errBoom = errors.New("boom")

// assertInternalError asserts that err is an AppError with code INTERNAL_ERROR.
func assertInternalError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
}
