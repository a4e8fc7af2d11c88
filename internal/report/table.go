package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/state"
)

// maxReasonWidth truncates reasons in table output; JSON and JUnit keep
// them whole.
const maxReasonWidth = 80

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

// WriteTable writes a human-readable summary of doc. Times are shown
// relative to now.
func WriteTable(w io.Writer, doc Document, now time.Time) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "CHECK\tRULE\tSTATUS\tREASON")
	for _, e := range doc.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, dash(e.Rule), e.Status, truncate(e.Reason, maxReasonWidth))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	c := doc.Counts
	verdict := "CONFORMANT"
	if !doc.Conformant {
		verdict = "NOT CONFORMANT"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s: %s against %s", verdict, doc.Suite, doc.Implementation)
	if doc.RunID != "" {
		fmt.Fprintf(&b, " (run %s)", state.ShortID(doc.RunID))
	}
	fmt.Fprintf(&b, ", started %s, took %s\n",
		humanize.RelTime(doc.StartedAt, now, "ago", "from now"),
		time.Duration(doc.DurationMS)*time.Millisecond)
	fmt.Fprintf(&b, "%d checks: %d passed, %d failed, %d skipped, %d inconclusive, %d informational\n",
		c.Total, c.Passed, c.Failed, c.Skipped, c.Inconclusive, c.Informational)
	fmt.Fprintf(&b, "required: %d passed, %d failed\n", c.RequiredPassed, c.RequiredFailed)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteRuns writes a table of recorded runs, newest first.
func WriteRuns(w io.Writer, runs []*state.Run, now time.Time) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tIMPLEMENTATION\tSUITE\tSTARTED\tDURATION\tPASS\tFAIL\tSKIP\tINCONCL\tINFO\tCONFORMANT")
	for _, r := range runs {
		c := r.Counts
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			state.ShortID(r.ID),
			r.Implementation,
			r.Suite,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.Duration,
			c.Passed, c.Failed, c.Skipped, c.Inconclusive, c.Informational,
			yesNo(r.Conformant()),
		)
	}
	return tw.Flush()
}

// WriteStreaks writes the stochastic checks that keep coming out
// INCONCLUSIVE.
func WriteStreaks(w io.Writer, streaks []state.Streak, now time.Time) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "IMPLEMENTATION\tCHECK\tINCONCLUSIVE\tLAST SEEN")
	for _, s := range streaks {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n",
			s.Implementation,
			s.CheckID,
			s.Inconclusive, s.Executed,
			humanize.RelTime(s.LastSeen, now, "ago", "from now"),
		)
	}
	return tw.Flush()
}

// StatusCounts renders counts compactly for log lines and list output.
func StatusCounts(c outcome.Counts) string {
	parts := make([]string, 0, len(outcome.Statuses))
	for _, s := range outcome.Statuses {
		if n := c.Get(s); n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(string(s)), n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
