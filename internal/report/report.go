// Package report renders run results as a text table, JSON or JUnit XML.
//
// Results from a live run (runner.Report) and from history (state.Run) are
// both converted to a Document first, so every format looks the same
// regardless of where the run came from.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/runner"
	"github.com/Quidge/streamtck/internal/state"
	"github.com/Quidge/streamtck/internal/tag"
)

// Format represents the desired output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatJUnit Format = "junit"
)

// ParseFormat validates a format name. Empty selects FormatTable.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatJUnit:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Document is the format-independent view of a run.
type Document struct {
	RunID          string         `json:"run_id,omitempty"`
	Suite          string         `json:"suite"`
	Implementation string         `json:"implementation"`
	StartedAt      time.Time      `json:"started_at"`
	DurationMS     int64          `json:"duration_ms"`
	Conformant     bool           `json:"conformant"`
	Counts         outcome.Counts `json:"counts"`
	Results        []Entry        `json:"results"`
}

// Entry is one check result.
type Entry struct {
	ID         string         `json:"id"`
	Rule       string         `json:"rule,omitempty"`
	Tags       []tag.Kind     `json:"tags"`
	Status     outcome.Status `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// FromRunner converts a live run.
func FromRunner(r *runner.Report) Document {
	doc := Document{
		RunID:          r.RunID,
		Suite:          r.Suite,
		Implementation: r.Implementation,
		StartedAt:      r.StartedAt,
		DurationMS:     r.Duration.Milliseconds(),
		Conformant:     r.Conformant(),
		Counts:         r.Counts,
		Results:        make([]Entry, len(r.Results)),
	}
	for i, res := range r.Results {
		doc.Results[i] = Entry{
			ID:         res.ID,
			Rule:       res.Rule,
			Tags:       kinds(res.Tags.Kinds()),
			Status:     res.Status,
			Reason:     res.Reason,
			DurationMS: res.Duration.Milliseconds(),
		}
	}
	return doc
}

// FromHistory converts a recorded run.
func FromHistory(run *state.Run, results []state.Result) Document {
	doc := Document{
		RunID:          run.ID,
		Suite:          run.Suite,
		Implementation: run.Implementation,
		StartedAt:      run.StartedAt,
		DurationMS:     run.Duration.Milliseconds(),
		Conformant:     run.Conformant(),
		Counts:         run.Counts,
		Results:        make([]Entry, len(results)),
	}
	for i, res := range results {
		doc.Results[i] = Entry{
			ID:         res.CheckID,
			Rule:       res.Rule,
			Tags:       kinds(res.Tags),
			Status:     res.Status,
			Reason:     res.Reason,
			DurationMS: res.Duration.Milliseconds(),
		}
	}
	return doc
}

// HistoryResults converts a live run's results into rows for state.SaveRun.
func HistoryResults(r *runner.Report) []state.Result {
	out := make([]state.Result, len(r.Results))
	for i, res := range r.Results {
		out[i] = state.Result{
			CheckID:  res.ID,
			Rule:     res.Rule,
			Tags:     res.Tags.Kinds(),
			Status:   res.Status,
			Reason:   res.Reason,
			Duration: res.Duration,
		}
	}
	return out
}

// kinds never returns nil so that JSON renders an empty list.
func kinds(ks []tag.Kind) []tag.Kind {
	if ks == nil {
		return []tag.Kind{}
	}
	return ks
}

// Write renders doc in the given format.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatTable, "":
		return WriteTable(w, doc, time.Now())
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatJUnit:
		return WriteJUnit(w, doc)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

// WriteFile renders doc into path, creating parent directories.
func WriteFile(path string, format Format, doc Document) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write report: %w", cerr)
		}
	}()
	return Write(f, format, doc)
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
