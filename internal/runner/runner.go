// Package runner executes a check suite against an implementation under test.
//
// For each check the runner computes a verdict, runs the body only when the
// verdict says so, and classifies the outcome. Checks are independent, so
// they may run in parallel; results are always reported in suite order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Quidge/streamtck/internal/check"
	"github.com/Quidge/streamtck/internal/logging"
	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/probe"
	"github.com/Quidge/streamtck/internal/selection"
)

// DefaultTimeout bounds a single check body.
const DefaultTimeout = 10 * time.Second

// ErrCheckTimeout is returned as the body error when a check exceeds its
// timeout.
var ErrCheckTimeout = errors.New("check timed out")

// Implementation is what the runner needs from the implementation under
// test: its optional factories and a name for reporting.
type Implementation interface {
	probe.Provider
	Name() string
}

// Runner runs suites against one implementation.
type Runner struct {
	// Impl is the implementation under test.
	Impl Implementation

	// RunID identifies the run in reports and history. May be empty.
	RunID string

	// Parallelism is the number of checks run concurrently. Values < 1
	// run checks one at a time.
	Parallelism int

	// Timeout bounds each check body. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Logger receives progress logging. The zero value discards.
	Logger zerolog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Run executes every check of suite and returns the report.
// It only returns an error when the suite itself is invalid or ctx is
// cancelled before all checks finished; check failures are part of the
// report.
func (r *Runner) Run(ctx context.Context, suite *check.Suite) (*Report, error) {
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	if r.Impl == nil {
		return nil, fmt.Errorf("no implementation under test")
	}

	now := r.now()
	started := now()
	rep := &Report{
		RunID:          r.RunID,
		Suite:          suite.Name,
		Implementation: r.Impl.Name(),
		StartedAt:      started,
		Results:        make([]CheckResult, len(suite.Checks)),
	}

	r.Logger.Info().
		Str("suite", suite.Name).
		Str("implementation", rep.Implementation).
		Int("checks", len(suite.Checks)).
		Msg("starting run")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Parallelism, 1))
	for i, c := range suite.Checks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep.Results[i] = r.RunCheck(gctx, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run interrupted: %w", err)
	}
	// A check that observed cancellation was classified like any other
	// failure. Its result says nothing about the implementation.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run interrupted: %w", err)
	}

	for i, c := range suite.Checks {
		rep.Counts.Add(c.Tags, rep.Results[i].Result())
	}
	rep.Duration = now().Sub(started)

	r.Logger.Info().
		Int("passed", rep.Counts.Passed).
		Int("failed", rep.Counts.Failed).
		Int("skipped", rep.Counts.Skipped).
		Int("inconclusive", rep.Counts.Inconclusive).
		Int("informational", rep.Counts.Informational).
		Bool("conformant", rep.Conformant()).
		Msg("run finished")

	return rep, nil
}

// RunCheck computes the verdict for c, executes it if the verdict allows and
// classifies the result.
func (r *Runner) RunCheck(ctx context.Context, c check.Check) CheckResult {
	now := r.now()
	started := now()
	logger := r.Logger.With().Str("check", c.ID).Logger()

	res := CheckResult{
		ID:          c.ID,
		Rule:        c.Rule,
		Description: c.Description,
		Tags:        c.Tags,
	}

	v, err := selection.Decide(ctx, c.Tags, r.Impl)
	if err != nil {
		classified := outcome.Failed(c.Tags, err)
		res.Status, res.Reason = classified.Status, classified.Reason
		res.Duration = now().Sub(started)
		logger.Warn().Err(err).Msg("verdict could not be computed")
		return res
	}
	res.Verdict = v

	if !v.Runs() {
		res.Status, res.Reason = outcome.StatusSkipped, v.Reason
		res.Duration = now().Sub(started)
		logger.Debug().Str("reason", v.Reason).Msg("check skipped")
		return res
	}

	res.Invoked = true
	bodyErr := r.execute(ctx, c, v, logger)
	classified := outcome.Classify(c.Tags, v, bodyErr)
	res.Status, res.Reason = classified.Status, classified.Reason
	res.Duration = now().Sub(started)

	event := logger.Debug()
	switch res.Status {
	case outcome.StatusFail:
		event = logger.Warn()
	case outcome.StatusInconclusive:
		event = logger.Info()
	}
	event.Str("status", string(res.Status)).
		Str("verdict", v.String()).
		Dur("duration", res.Duration).
		Str("reason", res.Reason).
		Msg("check finished")

	return res
}

// execute runs the body under the check timeout. The body runs on its own
// goroutine so that a body ignoring its context cannot stall the run; the
// optional instance is released when the body actually returns.
func (r *Runner) execute(ctx context.Context, c check.Check, v selection.Verdict, logger zerolog.Logger) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	env := check.NewEnv(r.Impl, v.Instance, logger)
	done := make(chan error, 1)
	go func() {
		defer release(v.Instance, logger)
		done <- invoke(ctx, c.Body, env)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Prefer a result that raced with the deadline.
		select {
		case err := <-done:
			return err
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrCheckTimeout, timeout)
		}
		return ctx.Err()
	}
}

// invoke calls body, converting a panic into an error.
func invoke(ctx context.Context, body check.Body, env *check.Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("check panicked: %v", p)
		}
	}()
	return body(ctx, env)
}

// release closes the probed instance if it holds resources.
func release(instance probe.Result, logger zerolog.Logger) {
	inst, ok := instance.Instance()
	if !ok {
		return
	}
	if closer, ok := inst.(io.Closer); ok {
		logging.DeferClose(logger, closer, "failed to release optional instance")
	}
}

func (r *Runner) now() func() time.Time {
	if r.Now != nil {
		return r.Now
	}
	return time.Now
}
