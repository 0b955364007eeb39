package forms

import (
	"context"
	"fmt"
	"strings"

	"pollhub/internal/models"
)

const (
	// ChoiceFormCount is the number of choice sub-forms shown on the create page.
	ChoiceFormCount = 5

	FieldQuestionText = "question_text"
)

// ChoiceFieldName returns the form field name of the i-th choice sub-form.
func ChoiceFieldName(i int) string {
	return fmt.Sprintf("form-%d-choice_text", i)
}

// PollForm is the question form plus the fixed choice form set.
type PollForm struct {
	QuestionText string
	Choices      [ChoiceFormCount]string

	Errors Errors
}

// NewPollForm binds values through get, typically a request's FormValue.
func NewPollForm(get func(key string) string) *PollForm {
	f := &PollForm{QuestionText: strings.TrimSpace(get(FieldQuestionText))}
	for i := range f.Choices {
		f.Choices[i] = strings.TrimSpace(get(ChoiceFieldName(i)))
	}
	return f
}

// Validate checks the question text and every provided choice. Blank choice
// sub-forms are skipped.
func (f *PollForm) Validate(ctx context.Context) (bool, error) {
	if err := f.Errors.check(ctx, FieldQuestionText, f.QuestionText, []Check[string]{
		Required,
		MaxLength(models.QuestionTextMaxLen),
	}); err != nil {
		return false, err
	}

	for i, text := range f.Choices {
		if text == "" {
			continue
		}
		if err := f.Errors.check(ctx, ChoiceFieldName(i), text, []Check[string]{
			MaxLength(models.ChoiceTextMaxLen),
		}); err != nil {
			return false, err
		}
	}

	return !f.Errors.Any(), nil
}

// ProvidedChoices returns the non-blank choice texts in form order.
func (f *PollForm) ProvidedChoices() []string {
	out := make([]string, 0, len(f.Choices))
	for _, text := range f.Choices {
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}
