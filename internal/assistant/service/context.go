package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"workboard/internal/domain"
	id "workboard/pkg/domain"
	"workboard/pkg/requestcontext"
)

// deadlineWindow is how far ahead a due date counts as "approaching".
const deadlineWindow = 3 * 24 * time.Hour

type teamContext struct {
	TotalTasks    int
	StatusCounts  map[domain.Status]int
	Projects      []string
	Deadlines     []string
	Roster        []string
	Directives    []string
	RequesterName string
}

// gatherTeamContext assembles the prompt context sections concurrently with
// shared cancellation.
func (s *Service) gatherTeamContext(ctx context.Context, actor id.UserID) (*teamContext, error) {
	g, ctx := errgroup.WithContext(ctx)

	tc := &teamContext{StatusCounts: make(map[domain.Status]int)}
	now := requestcontext.Now(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		items := s.mirror.WorkItems()
		tc.TotalTasks = len(items)
		projects := make(map[string]struct{})
		for _, item := range items {
			tc.StatusCounts[item.Status]++
			if item.ProjectName != "" {
				projects[item.ProjectName] = struct{}{}
			}
		}
		for name := range projects {
			tc.Projects = append(tc.Projects, name)
		}
		sort.Strings(tc.Projects)
		tc.Deadlines = approachingDeadlines(items, now)
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, u := range s.mirror.Users() {
			line := fmt.Sprintf("%s (%s): %s", u.Name, u.Role, u.TodayStatus)
			if u.ScheduledStatus != "" {
				line += ", " + u.ScheduledStatus
			}
			tc.Roster = append(tc.Roster, line)
		}
		if author, ok := s.mirror.User(actor); ok {
			tc.RequesterName = author.Name
		}
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, d := range s.mirror.Directives() {
			if d.Summary != "" {
				tc.Directives = append(tc.Directives, d.Summary)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tc, nil
}

func approachingDeadlines(items []domain.WorkItem, now time.Time) []string {
	var lines []string
	horizon := now.Add(deadlineWindow)
	for _, item := range items {
		if item.Status == domain.StatusDone || item.DueDate.IsZero() {
			continue
		}
		if item.DueDate.After(horizon) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s) due %s", item.Title, item.ProjectName, item.DueDate.Format(domain.DateFormat)))
	}
	return lines
}

func (s *Service) strategyPrompt(tc *teamContext, message string) string {
	var b strings.Builder
	b.WriteString("You are the strategy assistant for a team task board. ")
	b.WriteString("Answer concisely and ground every claim in the board state below.\n\n")

	if len(tc.Directives) > 0 {
		b.WriteString("Standing directives from management:\n")
		for _, d := range tc.Directives {
			b.WriteString("- ")
			b.WriteString(d)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "Board state: %d tasks", tc.TotalTasks)
	if tc.TotalTasks > 0 {
		fmt.Fprintf(&b, " (%d todo, %d in progress, %d done)",
			tc.StatusCounts[domain.StatusTodo],
			tc.StatusCounts[domain.StatusInProgress],
			tc.StatusCounts[domain.StatusDone],
		)
	}
	b.WriteString(".\n")
	if len(tc.Projects) > 0 {
		b.WriteString("Projects: " + strings.Join(tc.Projects, ", ") + ".\n")
	}
	if len(tc.Deadlines) > 0 {
		b.WriteString("Deadlines within 3 days:\n")
		for _, d := range tc.Deadlines {
			b.WriteString("- ")
			b.WriteString(d)
			b.WriteByte('\n')
		}
	}
	if len(tc.Roster) > 0 {
		b.WriteString("Team today:\n")
		for _, line := range tc.Roster {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	if tc.RequesterName != "" {
		fmt.Fprintf(&b, "%s asks: %s\n", tc.RequesterName, message)
	} else {
		fmt.Fprintf(&b, "Question: %s\n", message)
	}
	return b.String()
}

func (s *Service) summarizePrompt(text string) string {
	var b strings.Builder
	b.WriteString("Condense the following team directive into one short line ")
	b.WriteString("that can be injected into future prompts. Reply with the line only.\n")

	existing := s.mirror.Directives()
	if len(existing) > 0 {
		b.WriteString("Existing directives, for tone and to avoid duplication:\n")
		for _, d := range existing {
			if d.Summary != "" {
				b.WriteString("- ")
				b.WriteString(d.Summary)
				b.WriteByte('\n')
			}
		}
	}

	b.WriteString("\nDirective:\n")
	b.WriteString(text)
	b.WriteByte('\n')
	return b.String()
}
