package review

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
)

var (
	reviewTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	reviewMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// CLIReviewer presents drafts on the terminal and reads the decision
// interactively. It blocks in Review until the user picks a verdict or the
// context is cancelled.
type CLIReviewer struct {
	out *os.File
}

// NewCLIReviewer creates a terminal-backed reviewer writing to stdout.
func NewCLIReviewer() *CLIReviewer {
	return &CLIReviewer{out: os.Stdout}
}

func (r *CLIReviewer) Review(ctx context.Context, draft Draft) (*Outcome, error) {
	r.render(draft)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		choice, err := r.prompt(ctx)
		if err != nil {
			return nil, err
		}

		switch choice {
		case "Approve":
			return &Outcome{Decision: DecisionApprove}, nil
		case "Request changes":
			feedback, err := r.readFeedback()
			if err != nil {
				return nil, err
			}
			return &Outcome{Decision: DecisionRevise, Feedback: feedback}, nil
		case "Copy draft to clipboard":
			if err := clipboard.WriteAll(draftText(draft)); err != nil {
				fmt.Fprintf(r.out, "clipboard unavailable: %v\n", err)
			} else {
				fmt.Fprintln(r.out, "Draft copied to clipboard.")
			}
			// Stay in the loop; copying is not a decision.
		case "Reject":
			return &Outcome{Decision: DecisionReject}, nil
		}
	}
}

func (r *CLIReviewer) render(draft Draft) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, reviewTitleStyle.Render("── Draft for review ──"))
	fmt.Fprintln(r.out, reviewTitleStyle.Render(draft.Title))

	rendered, err := glamour.Render(draft.Body, "dark")
	if err != nil {
		rendered = draft.Body + "\n"
	}
	fmt.Fprint(r.out, rendered)

	if len(draft.Media) > 0 {
		fmt.Fprintln(r.out, reviewMetaStyle.Render("Media: "+strings.Join(draft.Media, ", ")))
	}
	if draft.Notes != "" {
		fmt.Fprintln(r.out, reviewMetaStyle.Render("Notes: "+draft.Notes))
	}
}

func (r *CLIReviewer) prompt(ctx context.Context) (string, error) {
	sel := promptui.Select{
		Label: "Review decision",
		Items: []string{"Approve", "Request changes", "Copy draft to clipboard", "Reject"},
	}

	type result struct {
		choice string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		_, choice, err := sel.Run()
		done <- result{choice, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			if res.err == promptui.ErrInterrupt {
				return "", context.Canceled
			}
			return "", res.err
		}
		return res.choice, nil
	}
}

func (r *CLIReviewer) readFeedback() (string, error) {
	prompt := promptui.Prompt{
		Label: "Feedback for the agent",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("feedback cannot be empty")
			}
			return nil
		},
	}
	feedback, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return "", context.Canceled
		}
		return "", err
	}
	return strings.TrimSpace(feedback), nil
}

func draftText(draft Draft) string {
	var b strings.Builder
	b.WriteString(draft.Title)
	b.WriteString("\n\n")
	b.WriteString(draft.Body)
	return b.String()
}
