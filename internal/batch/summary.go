package batch

import (
	"fmt"
	"io"

	"hmis-autoentry/internal/hmis"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Result is what happened to a single client.
type Result struct {
	Entry    report.Entry
	Strategy outreach.SearchStrategy
	// Op is the operation that decided the outcome.
	Op      string
	Outcome hmis.Outcome
	Err     error
}

// Summary is the result of a run.
type Summary struct {
	ServiceDate string
	Results     []Result
}

func (s Summary) Entered() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (s Summary) Failed() int {
	return len(s.Results) - s.Entered()
}

// Outcomes counts the results by outcome.
func (s Summary) Outcomes() map[hmis.Outcome]int {
	out := map[hmis.Outcome]int{}
	for _, r := range s.Results {
		out[r.Outcome]++
	}
	return out
}

// Render writes a table of every client and how it went.
func (s Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Service date %s", s.ServiceDate))
	t.AppendHeader(table.Row{"Client", "HMIS ID", "Search", "Services", "Outcome", "Cause"})
	for _, r := range s.Results {
		cause := ""
		if r.Err != nil {
			cause = r.Err.Error()
		}
		t.AppendRow(table.Row{
			r.Entry.Name,
			r.Entry.Query.ID,
			r.Strategy.String(),
			r.Entry.Services.String(),
			r.Outcome.String(),
			cause,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "entered", fmt.Sprintf("%d of %d", s.Entered(), len(s.Results))})
	t.Render()
}
