// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"pollhub/internal/models"
	"pollhub/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// DefaultPassword is used for fixture users that do not set one.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	FixturesPath string
	NumFake      int
	ShouldClean  bool
	// MaxDays bounds how far back fake questions are published.
	MaxDays int
}

// Fixtures is the YAML document accepted by LoadFixtures.
type Fixtures struct {
	Users     []UserFixture     `yaml:"users"`
	Questions []QuestionFixture `yaml:"questions"`
}

// UserFixture describes one account.
type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// QuestionFixture describes one poll. A missing pub_date means now.
type QuestionFixture struct {
	Text    string          `yaml:"text"`
	PubDate *time.Time      `yaml:"pub_date"`
	Choices []ChoiceFixture `yaml:"choices"`
}

// ChoiceFixture is one answer option plus the usernames that voted for it.
type ChoiceFixture struct {
	Text   string   `yaml:"text"`
	Voters []string `yaml:"voters"`
}

// Result counts what a seeding run created.
type Result struct {
	Users     int
	Questions int
	Votes     int
}

// LoadFixtures decodes and validates a fixtures document. Unknown fields are rejected.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixtures
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// LoadFixturesFile reads fixtures from a YAML file on disk.
func LoadFixturesFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return LoadFixtures(f)
}

// Validate checks the limits the web forms enforce.
func (fx *Fixtures) Validate() error {
	for i, u := range fx.Users {
		if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Email) == "" {
			return fmt.Errorf("users[%d]: username and email are required", i)
		}
	}
	for i, q := range fx.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("questions[%d]: text is required", i)
		}
		if utf8.RuneCountInString(q.Text) > models.QuestionTextMaxLen {
			return fmt.Errorf("questions[%d]: text longer than %d characters", i, models.QuestionTextMaxLen)
		}
		voted := make(map[string]bool)
		for j, c := range q.Choices {
			if strings.TrimSpace(c.Text) == "" {
				return fmt.Errorf("questions[%d].choices[%d]: text is required", i, j)
			}
			if utf8.RuneCountInString(c.Text) > models.ChoiceTextMaxLen {
				return fmt.Errorf("questions[%d].choices[%d]: text longer than %d characters", i, j, models.ChoiceTextMaxLen)
			}
			for _, voter := range c.Voters {
				if voted[voter] {
					return fmt.Errorf("questions[%d]: %q votes more than once", i, voter)
				}
				voted[voter] = true
			}
		}
	}
	return nil
}

// Seeder writes fixtures and fake data through the repositories so the vote
// counters stay consistent with the voter set.
type Seeder struct {
	db         *gorm.DB
	users      repository.UserRepository
	questions  repository.QuestionRepository
	factory    *Factory
	bcryptCost int
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:         db,
		users:      repository.NewUserRepository(db),
		questions:  repository.NewQuestionRepository(db),
		factory:    NewFactory(time.Now().UnixNano(), 30),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Run applies opts: optional cleanup, then fixtures, then fake questions.
func Run(ctx context.Context, db *gorm.DB, opts Options) (Result, error) {
	s := NewSeeder(db)
	if opts.MaxDays > 0 {
		s.factory.maxDays = opts.MaxDays
	}

	log.Printf("🌱 Starting database seeding (fixtures=%q, fake=%d)...", opts.FixturesPath, opts.NumFake)

	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return Result{}, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	var total Result
	if opts.FixturesPath != "" {
		fx, err := LoadFixturesFile(opts.FixturesPath)
		if err != nil {
			return total, err
		}
		res, err := s.Apply(ctx, fx)
		if err != nil {
			return total, fmt.Errorf("failed to apply fixtures: %w", err)
		}
		total = res
	}

	if opts.NumFake > 0 {
		created, err := s.SeedFakeQuestions(ctx, opts.NumFake)
		if err != nil {
			return total, fmt.Errorf("failed to create fake questions: %w", err)
		}
		total.Questions += len(created)
	}

	log.Printf("🎉 Seeding done: %d users, %d questions, %d votes", total.Users, total.Questions, total.Votes)
	return total, nil
}

// ClearAll deletes every poll, vote and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.QuestionVoter{}, &models.Choice{}, &models.Question{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Apply creates the fixture users and questions. Existing usernames and
// question texts are skipped so a fixture file can be applied repeatedly.
func (s *Seeder) Apply(ctx context.Context, fx *Fixtures) (Result, error) {
	var res Result

	ids := make(map[string]uint, len(fx.Users))
	for _, u := range fx.Users {
		user, created, err := s.ensureUser(ctx, u)
		if err != nil {
			return res, fmt.Errorf("user %s: %w", u.Username, err)
		}
		ids[user.Username] = user.ID
		if created {
			res.Users++
		}
	}

	for _, qf := range fx.Questions {
		var existing int64
		if err := s.db.WithContext(ctx).Model(&models.Question{}).
			Where("question_text = ?", qf.Text).Count(&existing).Error; err != nil {
			return res, err
		}
		if existing > 0 {
			continue
		}

		question := &models.Question{QuestionText: qf.Text}
		if qf.PubDate != nil {
			question.PubDate = qf.PubDate.UTC()
		}
		texts := make([]string, len(qf.Choices))
		for i, c := range qf.Choices {
			texts[i] = c.Text
		}
		if err := s.questions.CreateWithChoices(ctx, question, texts); err != nil {
			return res, fmt.Errorf("question %q: %w", qf.Text, err)
		}
		res.Questions++

		for i, c := range qf.Choices {
			for _, voter := range c.Voters {
				userID, ok := ids[voter]
				if !ok {
					user, err := s.users.GetByUsername(ctx, voter)
					if err != nil {
						return res, fmt.Errorf("voter %s: %w", voter, err)
					}
					if user == nil {
						return res, fmt.Errorf("voter %s: unknown user", voter)
					}
					userID = user.ID
					ids[voter] = userID
				}
				if err := s.questions.RecordVote(ctx, question.ID, question.Choices[i].ID, userID); err != nil {
					return res, fmt.Errorf("vote by %s: %w", voter, err)
				}
				res.Votes++
			}
		}
	}

	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, u UserFixture) (*models.User, bool, error) {
	existing, err := s.users.GetByUsername(ctx, u.Username)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	password := u.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Username: u.Username,
		Email:    strings.ToLower(strings.TrimSpace(u.Email)),
		Password: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// SeedFakeQuestions creates n generated questions with two to five choices each.
func (s *Seeder) SeedFakeQuestions(ctx context.Context, n int) ([]*models.Question, error) {
	created := make([]*models.Question, 0, n)
	for i := 0; i < n; i++ {
		question, choices := s.factory.BuildQuestion()
		if err := s.questions.CreateWithChoices(ctx, question, choices); err != nil {
			return created, err
		}
		created = append(created, question)

		if (i+1)%100 == 0 {
			log.Printf("Created %d questions...", i+1)
		}
	}
	return created, nil
}
