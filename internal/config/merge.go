package config

import (
	"fmt"
	"slices"
	"time"
)

// FlagOverrides contains CLI flag values that override configuration.
type FlagOverrides struct {
	Implementation string
	LogLevel       string
	Parallelism    int
	Timeout        time.Duration
	HistoryDB      string

	// Check selection. Flags add to the project patterns rather than
	// replacing them.
	Include     []string
	Exclude     []string
	WithTags    []string
	WithoutTags []string

	ReportFormat string
	ReportFile   string
}

// Merge combines global config, project config, and CLI flag overrides
// following the precedence order: defaults → global → project → flags.
func Merge(global GlobalConfig, project ProjectConfig, flags FlagOverrides) (MergedConfig, error) {
	merged := MergedConfig{
		Implementation: global.DefaultImplementation,
		LogLevel:       global.LogLevel,
		Parallelism:    global.Parallelism,
		Timeout:        global.Timeout.Std(),
	}

	if project.Implementation != "" {
		merged.Implementation = project.Implementation
	}
	if project.Parallelism != 0 {
		merged.Parallelism = project.Parallelism
	}
	if project.Timeout != 0 {
		merged.Timeout = project.Timeout.Std()
	}

	if flags.Implementation != "" {
		merged.Implementation = flags.Implementation
	}
	if flags.LogLevel != "" {
		merged.LogLevel = flags.LogLevel
	}
	if flags.Parallelism != 0 {
		merged.Parallelism = flags.Parallelism
	}
	if flags.Timeout != 0 {
		merged.Timeout = flags.Timeout
	}

	if merged.Parallelism < 0 {
		return MergedConfig{}, fmt.Errorf("parallelism must not be negative: %d", merged.Parallelism)
	}
	if merged.Timeout < 0 {
		return MergedConfig{}, fmt.Errorf("timeout must not be negative: %s", merged.Timeout)
	}

	im, ok := global.Implementations[merged.Implementation]
	if !ok {
		return MergedConfig{}, fmt.Errorf("unknown implementation: %s", merged.Implementation)
	}
	if im.Type == "" {
		return MergedConfig{}, fmt.Errorf("implementation %s has no type", merged.Implementation)
	}
	if im.MaxSubscribers < 0 {
		return MergedConfig{}, fmt.Errorf("implementation %s: max_subscribers must not be negative", merged.Implementation)
	}
	merged.ImplType = im.Type
	merged.MaxSubscribers = im.MaxSubscribers

	historyDB := global.HistoryDB
	if flags.HistoryDB != "" {
		historyDB = flags.HistoryDB
	}
	var err error
	merged.HistoryDB, err = ExpandPath("", historyDB)
	if err != nil {
		return MergedConfig{}, fmt.Errorf("failed to expand history_db: %w", err)
	}

	merged.Checks = Patterns{
		Include: concat(project.Checks.Include, flags.Include),
		Exclude: concat(project.Checks.Exclude, flags.Exclude),
	}
	merged.Tags = Patterns{
		Include: concat(project.Tags.Include, flags.WithTags),
		Exclude: concat(project.Tags.Exclude, flags.WithoutTags),
	}

	merged.Report = project.Report
	if flags.ReportFormat != "" {
		merged.Report.Format = flags.ReportFormat
	}
	if flags.ReportFile != "" {
		// Flag paths are relative to the working directory.
		merged.Report.File, err = ExpandPath("", flags.ReportFile)
	} else {
		merged.Report.File, err = ExpandPath(project.Dir(), project.Report.File)
	}
	if err != nil {
		return MergedConfig{}, fmt.Errorf("failed to expand report file: %w", err)
	}

	if err := ValidateReportFormat(merged.Report.Format); err != nil {
		return MergedConfig{}, err
	}
	if merged.Report.File != "" && merged.Report.Format == "" {
		merged.Report.Format = "junit"
	}

	if _, err := merged.Selector(); err != nil {
		return MergedConfig{}, err
	}

	return merged, nil
}

// Load loads the global configuration from globalPath (default location
// when empty) and the project configuration found from the working
// directory, then merges them with the provided flag overrides.
func Load(globalPath string, flags FlagOverrides) (MergedConfig, error) {
	global, err := LoadGlobalConfig(globalPath)
	if err != nil {
		return MergedConfig{}, fmt.Errorf("failed to load global config: %w", err)
	}

	project, err := LoadProjectConfig("")
	if err != nil {
		return MergedConfig{}, fmt.Errorf("failed to load project config: %w", err)
	}

	return Merge(global, project, flags)
}

func concat(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	return slices.Concat(a, b)
}
