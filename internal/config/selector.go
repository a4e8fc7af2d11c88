package config

import (
	"fmt"

	"github.com/Quidge/streamtck/internal/check"
	"github.com/Quidge/streamtck/internal/tag"
)

// ReportFormats lists the accepted report formats.
var ReportFormats = []string{"table", "json", "junit"}

// Selector builds the check selector described by the merged configuration.
func (m MergedConfig) Selector() (check.Selector, error) {
	sel := check.Selector{
		Include: m.Checks.Include,
		Exclude: m.Checks.Exclude,
	}

	var err error
	if sel.WithTags, err = parseKinds(m.Tags.Include); err != nil {
		return check.Selector{}, fmt.Errorf("invalid tags.include: %w", err)
	}
	if sel.WithoutTags, err = parseKinds(m.Tags.Exclude); err != nil {
		return check.Selector{}, fmt.Errorf("invalid tags.exclude: %w", err)
	}
	if err := sel.Validate(); err != nil {
		return check.Selector{}, err
	}
	return sel, nil
}

func parseKinds(names []string) ([]tag.Kind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	kinds := make([]tag.Kind, 0, len(names))
	for _, n := range names {
		k, err := tag.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// ValidateReportFormat returns an error unless format is empty or one of
// ReportFormats.
func ValidateReportFormat(format string) error {
	if format == "" {
		return nil
	}
	for _, f := range ReportFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown report format %q (want one of %v)", format, ReportFormats)
}
