package repository

import (
	"context"
	"regexp"
	"testing"

	"pollhub/internal/models"
	"pollhub/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		expectedUser *models.User
		notFound     bool
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email", "avatar"}).
					AddRow(1, "alice", "alice@example.com", "avatars/a.png")
				mock.ExpectQuery(query).WithArgs(1, 1).WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "alice", Email: "alice@example.com", Avatar: "avatars/a.png"},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(query).WithArgs(99, 1).WillReturnError(gorm.ErrRecordNotFound)
			},
			notFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.notFound {
				assert.True(t, models.IsNotFound(err), "got %v", err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.expectedUser.Username, user.Username)
				assert.Equal(t, tt.expectedUser.Avatar, user.Avatar)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func createUser(t *testing.T, repo UserRepository, username, email string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: email, Password: "hash", Avatar: "avatars/" + username + ".png"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_CreateDuplicates(t *testing.T) {
	repo := NewUserRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	createUser(t, repo, "alice", "alice@example.com")

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	err = repo.Create(ctx, &models.User{Username: "bob", Email: "alice@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepository_Lookups(t *testing.T) {
	repo := NewUserRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	alice := createUser(t, repo, "alice", "alice@example.com")

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repo.UsernameExists(ctx, "alice", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.UsernameExists(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.False(t, exists, "own row is excluded")

	exists, err = repo.EmailExists(ctx, "alice@example.com", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "bob@example.com", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_Update(t *testing.T) {
	repo := NewUserRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	alice := createUser(t, repo, "alice", "alice@example.com")
	createUser(t, repo, "bob", "bob@example.com")

	alice.Username = "alicia"
	alice.Avatar = "avatars/new.png"
	require.NoError(t, repo.Update(ctx, alice))

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)
	assert.Equal(t, "avatars/new.png", got.Avatar)
	assert.Equal(t, "hash", got.Password, "password untouched by profile edits")

	alice.Email = "bob@example.com"
	assert.ErrorIs(t, repo.Update(ctx, alice), ErrDuplicateEmail)

	err = repo.Update(ctx, &models.User{ID: 999, Username: "ghost", Email: "ghost@example.com"})
	assert.True(t, models.IsNotFound(err))
}

func TestUserRepository_DeleteRemovesVoterRows(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	users := NewUserRepository(db)
	questions := NewQuestionRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	q := &models.Question{QuestionText: "Tea or coffee?"}
	require.NoError(t, questions.CreateWithChoices(ctx, q, []string{"Tea", "Coffee"}))
	require.NoError(t, questions.RecordVote(ctx, q.ID, q.Choices[0].ID, alice.ID))

	require.NoError(t, users.Delete(ctx, alice.ID))

	var voters int64
	require.NoError(t, db.Model(&models.QuestionVoter{}).Count(&voters).Error)
	assert.Zero(t, voters)

	got, err := questions.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalVotes, "counters are kept after the voter leaves")

	_, err = users.GetByID(ctx, alice.ID)
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(users.Delete(ctx, alice.ID)))
}
