package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"pollhub/internal/bootstrap"
	"pollhub/internal/repository"

	"github.com/spf13/cobra"
)

func newQuestionsCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Inspect polls",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List questions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := open(bootstrap.Options{})
			if err != nil {
				return err
			}
			questions, err := repository.NewQuestionRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(questions) > limit {
				questions = questions[:limit]
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPUBLISHED\tVOTES\tQUESTION")
			for _, q := range questions {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", q.ID, q.PubDate.UTC().Format(time.DateTime), q.TotalVotes, q.QuestionText)
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "Show at most this many questions")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one question with its vote counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid question id %q", args[0])
			}
			_, db, err := open(bootstrap.Options{})
			if err != nil {
				return err
			}
			q, err := repository.NewQuestionRepository(db).GetByID(cmd.Context(), uint(id))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", q)
			fmt.Fprintf(out, "published %s, %d votes\n", q.PubDate.UTC().Format(time.DateTime), q.TotalVotes)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, c := range q.Choices {
				fmt.Fprintf(w, "  %d\t%s\t%d\t%d%%\n", c.ID, c.ChoiceText, c.Votes, c.Percent(q.TotalVotes))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
