package history

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Quidge/streamtck/internal/state"
)

// FormatAmbiguousPrefixError formats an AmbiguousPrefixError into a helpful
// error message that lists every matching run.
func FormatAmbiguousPrefixError(err *state.AmbiguousPrefixError) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("ambiguous run ID %q: matches %d runs\n", err.Prefix, len(err.Matches)))
	sb.WriteString("\nMatching runs:\n")

	for _, run := range err.Matches {
		verdict := "conformant"
		if !run.Conformant() {
			verdict = "not conformant"
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  (%s)\n",
			state.ShortID(run.ID),
			run.Implementation,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			verdict,
		))
	}

	sb.WriteString("\nHint: use a longer prefix")

	return fmt.Errorf("%s", sb.String())
}

// lookupRun resolves a run ID prefix, turning lookup failures into
// user-facing errors.
func lookupRun(db *state.DB, prefix string) (*state.Run, error) {
	run, err := db.GetRunByPrefix(prefix)
	if err == nil {
		return run, nil
	}

	var ambiguous *state.AmbiguousPrefixError
	switch {
	case errors.As(err, &ambiguous):
		return nil, FormatAmbiguousPrefixError(ambiguous)
	case errors.Is(err, state.ErrRunNotFound):
		return nil, fmt.Errorf("run %q not found", prefix)
	case errors.Is(err, state.ErrInvalidPrefix):
		return nil, fmt.Errorf("invalid run ID %q: must contain only hexadecimal characters", prefix)
	}
	return nil, fmt.Errorf("failed to get run: %w", err)
}
