package server

import (
	"errors"
	"strconv"
	"time"

	"pollhub/internal/featureflags"
	"pollhub/internal/forms"
	"pollhub/internal/messages"
	"pollhub/internal/models"
	"pollhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// resultRow is one choice line on the results page.
type resultRow struct {
	ID      uint
	Text    string
	Votes   int
	Percent int
}

func resultRows(q *models.Question) []resultRow {
	rows := make([]resultRow, 0, len(q.Choices))
	for i := range q.Choices {
		ch := &q.Choices[i]
		rows = append(rows, resultRow{
			ID:      ch.ID,
			Text:    ch.ChoiceText,
			Votes:   ch.Votes,
			Percent: ch.Percent(q.TotalVotes),
		})
	}
	return rows
}

// choiceField is one choice sub-form on the create page.
type choiceField struct {
	Name   string
	Number int
	Value  string
}

func resultsURL(id uint) string {
	return "/polls/" + strconv.FormatUint(uint64(id), 10) + "/results"
}

// Index lists every question, newest first.
func (s *Server) Index(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	questions, err := s.pollService.List(ctx)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "polls/index", fiber.Map{
		"Questions": questions,
		"Now":       time.Now().UTC(),
	})
}

// Detail renders the voting form, or redirects to the results when the
// viewer already voted.
func (s *Server) Detail(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Question")
	if err != nil {
		return err
	}
	ctx, cancel := serviceContext(c)
	defer cancel()

	q, voted, err := s.pollService.Detail(ctx, id, viewerID(c))
	if err != nil {
		return err
	}
	if voted {
		return c.Redirect(resultsURL(q.ID), fiber.StatusSeeOther)
	}
	return s.renderDetail(c, q, "")
}

func (s *Server) renderDetail(c *fiber.Ctx, q *models.Question, errorMessage string) error {
	return s.render(c, fiber.StatusOK, "polls/detail", fiber.Map{
		"Title":        q.QuestionText,
		"Question":     q,
		"ErrorMessage": errorMessage,
	})
}

// Vote records the submitted choice. A missing or foreign choice re-renders
// the form; a repeated vote goes straight to the results.
func (s *Server) Vote(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Question")
	if err != nil {
		return err
	}
	ctx, cancel := serviceContext(c)
	defer cancel()

	q, err := s.pollService.Vote(ctx, id, viewerID(c), c.FormValue("choice"))
	switch {
	case errors.Is(err, service.ErrNoSelection):
		return s.renderDetail(c, q, s.text(c, messages.NoSelection))
	case errors.Is(err, service.ErrAlreadyVoted):
		return c.Redirect(resultsURL(id), fiber.StatusSeeOther)
	case err != nil:
		return err
	}
	return c.Redirect(resultsURL(q.ID), fiber.StatusSeeOther)
}

// Results shows the counters of a question. Anyone may view them.
func (s *Server) Results(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Question")
	if err != nil {
		return err
	}
	ctx, cancel := serviceContext(c)
	defer cancel()

	q, err := s.pollService.Results(ctx, id)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "polls/results", fiber.Map{
		"Title":    s.text(c, messages.TitleResults),
		"Question": q,
		"Rows":     resultRows(q),
		"Live":     s.featureFlags.Enabled(featureflags.LiveResults, viewerID(c)),
	})
}

// NewPollPage renders an empty question form with the choice form set.
func (s *Server) NewPollPage(c *fiber.Ctx) error {
	return s.renderNewPoll(c, forms.NewPollForm(func(string) string { return "" }))
}

func (s *Server) renderNewPoll(c *fiber.Ctx, form *forms.PollForm) error {
	choices := make([]choiceField, len(form.Choices))
	for i, text := range form.Choices {
		choices[i] = choiceField{Name: forms.ChoiceFieldName(i), Number: i + 1, Value: text}
	}
	return s.render(c, fiber.StatusOK, "polls/new", fiber.Map{
		"Title":        s.text(c, messages.TitleNewPoll),
		"QuestionText": form.QuestionText,
		"Choices":      choices,
		"Errors":       form.Errors.Localize(s.catalog, s.locale(c)),
	})
}

// CreatePoll stores the question with its non-blank choices.
func (s *Server) CreatePoll(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	form := forms.NewPollForm(func(key string) string { return c.FormValue(key) })
	_, ok, err := s.pollService.Create(ctx, form)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderNewPoll(c, form)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}
