package seed

import (
	"strings"
	"time"
	"unicode/utf8"

	"pollhub/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds unsaved questions with generated text.
type Factory struct {
	faker   *gofakeit.Faker
	now     func() time.Time
	maxDays int
}

// NewFactory creates a Factory. The same seed yields the same questions.
func NewFactory(seed int64, maxDays int) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: time.Now, maxDays: maxDays}
}

// BuildQuestion returns a question published within the last maxDays and
// two to five distinct choice texts.
func (f *Factory) BuildQuestion() (*models.Question, []string) {
	q := &models.Question{
		QuestionText: truncate(f.faker.Question(), models.QuestionTextMaxLen),
	}

	if f.maxDays > 0 {
		back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
		q.PubDate = f.now().UTC().Add(-back)
	} else {
		q.PubDate = f.now().UTC()
	}

	n := f.faker.Number(2, 5)
	seen := make(map[string]bool, n)
	choices := make([]string, 0, n)
	for attempts := 0; len(choices) < n && attempts < n*10; attempts++ {
		text := truncate(strings.TrimSuffix(f.faker.Sentence(f.faker.Number(1, 4)), "."), models.ChoiceTextMaxLen)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		choices = append(choices, text)
	}
	return q, choices
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
