package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/interview-coach/internal/i18n"
	"github.com/pavelanni/interview-coach/internal/interview"
	"github.com/pavelanni/interview-coach/internal/model"
)

func interviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run an interactive interview in the terminal",
		RunE:  runInterview,
	}
	f := cmd.Flags()
	f.StringP("user", "u", "", "Candidate name (prompted when empty)")
	f.StringP("domain", "D", "", "Question domain (prompted when empty)")
	engineFlags(f)
	return cmd
}

func runInterview(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	eng, err := newEngine(cmd.Context(), v)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := appI18n.WithLang(cmd.Context(), v.GetString("lang"))
	out := cmd.OutOrStdout()

	user := strings.TrimSpace(v.GetString("user"))
	if user == "" {
		namePrompt := promptui.Prompt{
			Label: appI18n.T(ctx, "YourName"),
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("name is required")
				}
				return nil
			},
		}
		if user, err = namePrompt.Run(); err != nil {
			return err
		}
		user = strings.TrimSpace(user)
	}

	domain := model.Domain(v.GetString("domain"))
	if domain == "" {
		domains := eng.bank.Domains()
		domainPrompt := promptui.Select{
			Label: appI18n.T(ctx, "ChooseDomain"),
			Items: domains,
		}
		i, _, err := domainPrompt.Run()
		if err != nil {
			return err
		}
		domain = domains[i]
	}

	id := eng.orch.Start(ctx, user, domain)
	if err := askLoop(ctx, out, eng.orch, id); err != nil {
		return err
	}

	sum, err := eng.orch.Finish(ctx, id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	printSummary(ctx, out, sum)
	return nil
}

// askLoop walks the difficulty flow. Ctrl+C ends the interview early; the
// caller still finishes the session.
func askLoop(ctx context.Context, out io.Writer, orch *interview.Orchestrator, id string) error {
	for n := 1; ; n++ {
		difficulty, more, err := orch.NextDifficulty(id)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		q, err := orch.AskNext(ctx, id, difficulty)
		if errors.Is(err, model.ErrExhaustedPool) {
			slog.Warn("question pool exhausted", "session_id", id, "difficulty", difficulty)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n%s\n%s\n\n", appI18n.Td(ctx, "QuestionN", map[string]any{"N": n, "Difficulty": q.Difficulty}), q.Text)

		answerPrompt := promptui.Prompt{Label: appI18n.T(ctx, "YourAnswer")}
		answer, err := answerPrompt.Run()
		switch {
		case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
			if _, err := orch.SubmitAnswer(ctx, id, model.TimeoutAnswer); err != nil {
				return err
			}
			return nil
		case err != nil:
			return err
		}
		if strings.TrimSpace(answer) == "" {
			answer = model.TimeoutAnswer
		}

		ev, err := orch.SubmitAnswer(ctx, id, answer)
		if err != nil {
			return err
		}
		printEvaluation(ctx, out, ev)
	}
}

func printEvaluation(ctx context.Context, out io.Writer, ev model.Evaluation) {
	fmt.Fprintln(out, appI18n.Td(ctx, "ScoreLine", map[string]any{"Score": ev.Score}))
	fmt.Fprintln(out, ev.Feedback)
	if len(ev.Suggestions) > 0 {
		fmt.Fprintln(out, appI18n.T(ctx, "Suggestions"))
		for _, s := range ev.Suggestions {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
}

func printSummary(ctx context.Context, out io.Writer, sum model.Summary) {
	fmt.Fprintf(out, "\n== %s: %s (%s) ==\n", appI18n.T(ctx, "SummaryTitle"), sum.Student, sum.Domain)
	fmt.Fprintln(out, appI18n.Tp(ctx, "QuestionsAnswered", sum.NumQuestions))
	fmt.Fprintln(out, appI18n.Td(ctx, "AverageScore", map[string]any{"Average": fmt.Sprintf("%.2f", sum.AverageScore)}))
	for _, d := range sum.Details {
		fmt.Fprintf(out, "  [%2d/10] %s\n", d.Score, d.QuestionText)
	}
	if len(sum.Weaknesses) > 0 {
		fmt.Fprintln(out, appI18n.T(ctx, "Weaknesses"))
		for _, d := range sum.Details {
			if sum.Weaknesses[d.QuestionID] > 0 {
				fmt.Fprintf(out, "  - %s\n", d.QuestionText)
			}
		}
	}
}
