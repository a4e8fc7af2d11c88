package state

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/tag"
)

// openTestDB creates an in-memory database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// saveTestRun stores a run with the given results, filling in counts.
func saveTestRun(t *testing.T, db *DB, id, impl string, startedAt time.Time, results ...Result) *Run {
	t.Helper()
	run := &Run{
		ID:             id,
		Suite:          "publisher",
		Implementation: impl,
		ImplType:       "reference",
		StartedAt:      startedAt,
		Duration:       1500 * time.Millisecond,
	}
	for _, r := range results {
		run.Counts.Add(tag.Set{}, outcome.Result{Status: r.Status, Reason: r.Reason})
	}
	if err := db.SaveRun(run, results); err != nil {
		t.Fatalf("SaveRun(%s) failed: %v", id, err)
	}
	return run
}

func stochasticResult(id string, status outcome.Status) Result {
	return Result{CheckID: id, Rule: "1.3", Tags: []tag.Kind{tag.KindStochastic}, Status: status}
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		db, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open(:memory:) failed: %v", err)
		}
		defer db.Close()

		if db.Path() != ":memory:" {
			t.Errorf("Path() = %q, want %q", db.Path(), ":memory:")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := t.TempDir() + "/nested/dirs/history.db"
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", path, err)
		}
		defer db.Close()

		if db.Path() != path {
			t.Errorf("Path() = %q, want %q", db.Path(), path)
		}
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		path := t.TempDir() + "/history.db"
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", path, err)
		}
		saveTestRun(t, db, "aaaa0000000000000000000000000000", "ref", time.Now())
		db.Close()

		db, err = Open(path)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer db.Close()
		if _, err := db.GetRun("aaaa0000000000000000000000000000"); err != nil {
			t.Errorf("GetRun() after reopen failed: %v", err)
		}
	})
}

func TestDefaultDBPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath() failed: %v", err)
	}
	if path != "/data/streamtck/history.db" {
		t.Errorf("DefaultDBPath() = %q", path)
	}
}

func TestMigrations(t *testing.T) {
	db := openTestDB(t)

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}

	if version != len(migrations) {
		t.Errorf("SchemaVersion() = %d, want %d", version, len(migrations))
	}

	// Running migrations again is a no-op.
	if err := db.migrate(); err != nil {
		t.Errorf("second migrate() failed: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := openTestDB(t)

	started := time.Now().Truncate(time.Second)
	run := &Run{
		ID:             "0123456789abcdef0123456789abcdef",
		Suite:          "publisher",
		Implementation: "my-impl",
		ImplType:       "reference",
		RepoPath:       "/home/user/project",
		Branch:         "main",
		StartedAt:      started,
		Duration:       2 * time.Second,
		Counts: outcome.Counts{
			Total: 3, Passed: 1, Failed: 1, Skipped: 1,
			RequiredPassed: 1, RequiredFailed: 1,
		},
	}
	results := []Result{
		{CheckID: "required_a", Rule: "1.1", Tags: []tag.Kind{tag.KindRequired}, Status: outcome.StatusPass, Duration: 3 * time.Millisecond},
		{CheckID: "required_b", Rule: "1.2", Tags: []tag.Kind{tag.KindRequired}, Status: outcome.StatusFail, Reason: "assertion failed: boom"},
		{CheckID: "optional_c", Tags: []tag.Kind{tag.KindAdditional}, Status: outcome.StatusSkipped, Reason: "not provided"},
	}

	if err := db.SaveRun(run, results); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		got, err := db.GetRun(run.ID)
		if err != nil {
			t.Fatalf("GetRun() failed: %v", err)
		}
		if got.Implementation != run.Implementation {
			t.Errorf("Implementation = %q, want %q", got.Implementation, run.Implementation)
		}
		if got.RepoPath != run.RepoPath || got.Branch != run.Branch {
			t.Errorf("RepoPath/Branch = %q/%q, want %q/%q", got.RepoPath, got.Branch, run.RepoPath, run.Branch)
		}
		if !got.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
		}
		if got.Duration != run.Duration {
			t.Errorf("Duration = %v, want %v", got.Duration, run.Duration)
		}
		if got.Counts != run.Counts {
			t.Errorf("Counts = %+v, want %+v", got.Counts, run.Counts)
		}
		if got.Conformant() {
			t.Error("Conformant() = true for a run with a failure")
		}
	})

	t.Run("Results", func(t *testing.T) {
		got, err := db.ResultsForRun(run.ID)
		if err != nil {
			t.Fatalf("ResultsForRun() failed: %v", err)
		}
		if len(got) != len(results) {
			t.Fatalf("ResultsForRun() returned %d results, want %d", len(got), len(results))
		}
		for i := range results {
			if got[i].CheckID != results[i].CheckID {
				t.Errorf("result %d CheckID = %q, want %q", i, got[i].CheckID, results[i].CheckID)
			}
			if got[i].Status != results[i].Status {
				t.Errorf("result %d Status = %q, want %q", i, got[i].Status, results[i].Status)
			}
			if got[i].Reason != results[i].Reason {
				t.Errorf("result %d Reason = %q, want %q", i, got[i].Reason, results[i].Reason)
			}
			if len(got[i].Tags) != 1 || got[i].Tags[0] != results[i].Tags[0] {
				t.Errorf("result %d Tags = %v, want %v", i, got[i].Tags, results[i].Tags)
			}
		}
	})

	t.Run("Get not found", func(t *testing.T) {
		_, err := db.GetRun("ffffffffffffffffffffffffffffffff")
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun(nonexistent) error = %v, want ErrRunNotFound", err)
		}
	})

	t.Run("Duplicate ID", func(t *testing.T) {
		if err := db.SaveRun(run, nil); err == nil {
			t.Error("SaveRun() with duplicate ID succeeded")
		}
	})
}

func TestSaveRunRejectsInvalidStatus(t *testing.T) {
	db := openTestDB(t)

	run := &Run{ID: "abcd", Suite: "publisher", Implementation: "x", ImplType: "reference", StartedAt: time.Now()}
	err := db.SaveRun(run, []Result{{CheckID: "c", Status: "BROKEN"}})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SaveRun() error = %v, want ErrInvalidStatus", err)
	}

	if _, err := db.GetRun("abcd"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("run was stored despite invalid result: %v", err)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	saveTestRun(t, db, "abc1230000000000000000000000000a", "ref", now)
	saveTestRun(t, db, "abc4560000000000000000000000000b", "ref", now)
	saveTestRun(t, db, "def7890000000000000000000000000c", "ref", now)

	tests := []struct {
		prefix  string
		wantID  string
		wantErr error
	}{
		{"def", "def7890000000000000000000000000c", nil},
		{"ABC1", "abc1230000000000000000000000000a", nil},
		{"abc", "", ErrAmbiguousPrefix},
		{"999", "", ErrRunNotFound},
		{"xyz", "", ErrInvalidPrefix},
		{"", "", ErrInvalidPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := db.GetRunByPrefix(tt.prefix)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetRunByPrefix(%q) error = %v, want %v", tt.prefix, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetRunByPrefix(%q) failed: %v", tt.prefix, err)
			}
			if got.ID != tt.wantID {
				t.Errorf("GetRunByPrefix(%q) = %q, want %q", tt.prefix, got.ID, tt.wantID)
			}
		})
	}

	t.Run("ambiguous lists matches", func(t *testing.T) {
		_, err := db.GetRunByPrefix("abc")
		var ambErr *AmbiguousPrefixError
		if !errors.As(err, &ambErr) {
			t.Fatalf("error = %v, want *AmbiguousPrefixError", err)
		}
		if len(ambErr.Matches) != 2 {
			t.Errorf("Matches = %d, want 2", len(ambErr.Matches))
		}
		if !strings.Contains(err.Error(), "matches 2 runs") {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}

func TestDeleteRun(t *testing.T) {
	db := openTestDB(t)
	id := GenerateID()
	saveTestRun(t, db, id, "ref", time.Now(), Result{CheckID: "a", Status: outcome.StatusPass})

	if err := db.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}
	if _, err := db.GetRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() after delete error = %v, want ErrRunNotFound", err)
	}
	results, err := db.ResultsForRun(id)
	if err != nil {
		t.Fatalf("ResultsForRun() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("ResultsForRun() after delete = %d results, want 0", len(results))
	}
	if err := db.DeleteRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("DeleteRun(deleted) error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Now().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		impl := "ref"
		if i%2 == 1 {
			impl = "other"
		}
		run := &Run{
			ID:             fmt.Sprintf("%032x", i+1),
			Suite:          "publisher",
			Implementation: impl,
			ImplType:       "reference",
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if i < 2 {
			run.RepoPath = "/repo"
		}
		if err := db.SaveRun(run, nil); err != nil {
			t.Fatalf("SaveRun() failed: %v", err)
		}
	}

	tests := []struct {
		name    string
		opts    ListOptions
		wantIDs []int
	}{
		{"all newest first", ListOptions{}, []int{5, 4, 3, 2, 1}},
		{"by implementation", ListOptions{Implementation: "other"}, []int{4, 2}},
		{"by repo", ListOptions{RepoPath: "/repo"}, []int{2, 1}},
		{"limit", ListOptions{Limit: 2}, []int{5, 4}},
		{"combined", ListOptions{Implementation: "ref", RepoPath: "/repo"}, []int{1}},
		{"no match", ListOptions{Implementation: "missing"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := db.ListRuns(tt.opts)
			if err != nil {
				t.Fatalf("ListRuns() failed: %v", err)
			}
			if len(runs) != len(tt.wantIDs) {
				t.Fatalf("ListRuns() returned %d runs, want %d", len(runs), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if runs[i].ID != fmt.Sprintf("%032x", want) {
					t.Errorf("runs[%d].ID = %q, want run %d", i, runs[i].ID, want)
				}
			}

			count, err := db.CountRuns(tt.opts)
			if err != nil {
				t.Fatalf("CountRuns() failed: %v", err)
			}
			if tt.opts.Limit == 0 && count != len(tt.wantIDs) {
				t.Errorf("CountRuns() = %d, want %d", count, len(tt.wantIDs))
			}
		})
	}
}

func TestStochasticStreaks(t *testing.T) {
	db := openTestDB(t)
	base := time.Now().Truncate(time.Second)

	// Oldest to newest. "flaky" is inconclusive in runs 1, 3 and 4;
	// "steady" once; the required check never counts.
	statuses := []struct {
		flaky  outcome.Status
		steady outcome.Status
	}{
		{outcome.StatusInconclusive, outcome.StatusPass},
		{outcome.StatusPass, outcome.StatusInconclusive},
		{outcome.StatusInconclusive, outcome.StatusPass},
		{outcome.StatusInconclusive, outcome.StatusSkipped},
	}
	for i, s := range statuses {
		saveTestRun(t, db, fmt.Sprintf("%032x", i+1), "ref", base.Add(time.Duration(i)*time.Minute),
			stochasticResult("stochastic_flaky", s.flaky),
			stochasticResult("stochastic_steady", s.steady),
			Result{CheckID: "required_x", Tags: []tag.Kind{tag.KindRequired}, Status: outcome.StatusFail},
		)
	}
	saveTestRun(t, db, fmt.Sprintf("%032x", 99), "other", base,
		stochasticResult("stochastic_flaky", outcome.StatusInconclusive))

	t.Run("all runs", func(t *testing.T) {
		streaks, err := db.StochasticStreaks(StreakOptions{Implementation: "ref", MinInconclusive: 2})
		if err != nil {
			t.Fatalf("StochasticStreaks() failed: %v", err)
		}
		if len(streaks) != 1 {
			t.Fatalf("StochasticStreaks() = %+v, want one streak", streaks)
		}
		s := streaks[0]
		if s.CheckID != "stochastic_flaky" || s.Inconclusive != 3 || s.Executed != 4 {
			t.Errorf("streak = %+v, want stochastic_flaky 3/4", s)
		}
		if !s.LastSeen.Equal(base.Add(3 * time.Minute)) {
			t.Errorf("LastSeen = %v, want %v", s.LastSeen, base.Add(3*time.Minute))
		}
	})

	t.Run("window excludes skipped executions", func(t *testing.T) {
		streaks, err := db.StochasticStreaks(StreakOptions{Implementation: "ref", LastRuns: 3})
		if err != nil {
			t.Fatalf("StochasticStreaks() failed: %v", err)
		}
		if len(streaks) != 2 {
			t.Fatalf("StochasticStreaks() = %+v, want two streaks", streaks)
		}
		if streaks[0].CheckID != "stochastic_flaky" || streaks[0].Inconclusive != 2 || streaks[0].Executed != 3 {
			t.Errorf("streaks[0] = %+v, want stochastic_flaky 2/3", streaks[0])
		}
		if streaks[1].CheckID != "stochastic_steady" || streaks[1].Inconclusive != 1 || streaks[1].Executed != 2 {
			t.Errorf("streaks[1] = %+v, want stochastic_steady 1/2", streaks[1])
		}
	})

	t.Run("all implementations", func(t *testing.T) {
		streaks, err := db.StochasticStreaks(StreakOptions{MinInconclusive: 1})
		if err != nil {
			t.Fatalf("StochasticStreaks() failed: %v", err)
		}
		if len(streaks) != 3 {
			t.Fatalf("StochasticStreaks() returned %d streaks, want 3: %+v", len(streaks), streaks)
		}
	})
}

func TestGenerateID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if len(id) != IDLength {
			t.Fatalf("GenerateID() = %q, want %d chars", id, IDLength)
		}
		if !isHexString(id) {
			t.Fatalf("GenerateID() = %q is not hex", id)
		}
		if seen[id] {
			t.Fatalf("GenerateID() returned duplicate %q", id)
		}
		seen[id] = true
	}

	if got := ShortID(GenerateID()); len(got) != ShortIDLength {
		t.Errorf("ShortID() length = %d, want %d", len(got), ShortIDLength)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID(abc) = %q", got)
	}
}

func TestConcurrentReads(t *testing.T) {
	db := openTestDB(t)
	id := GenerateID()
	saveTestRun(t, db, id, "ref", time.Now())

	// t.Errorf is not safe to call from goroutines
	const numGoroutines = 10
	errs := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			_, err := db.GetRun(id)
			errs <- err
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent GetRun() failed: %v", err)
		}
	}
}
