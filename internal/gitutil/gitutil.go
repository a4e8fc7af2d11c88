// Package gitutil reads the git context a run is started from.
// It shells out to the git binary rather than linking a git library.
package gitutil

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrNotGitRepo is returned when the directory is not inside a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrDetachedHead is returned when the repository is in detached HEAD state.
	ErrDetachedHead = errors.New("repository is in detached HEAD state")

	// ErrNoRemote is returned when no remote URL is configured.
	ErrNoRemote = errors.New("no remote URL configured")
)

// Info describes the repository a run was started from.
type Info struct {
	Root      string // Repository root
	Branch    string // Current branch, empty when detached
	Commit    string // HEAD commit, empty before the first commit
	RemoteURL string // URL of origin, empty when not configured
}

// git runs a git subcommand in dir and returns its trimmed stdout.
// A non-zero exit is reported as *exec.ExitError.
func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// RepoRoot returns the root directory of the git repository containing dir.
// If dir is empty, the current working directory is used.
func RepoRoot(dir string) (string, error) {
	root, err := git(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		if isExitError(err) {
			return "", ErrNotGitRepo
		}
		return "", fmt.Errorf("failed to get repo root: %w", err)
	}
	return root, nil
}

// RemoteURL returns the URL of the specified remote.
// If remoteName is empty, "origin" is used.
func RemoteURL(dir, remoteName string) (string, error) {
	if remoteName == "" {
		remoteName = "origin"
	}

	url, err := git(dir, "remote", "get-url", remoteName)
	if err != nil {
		if isExitError(err) {
			return "", ErrNoRemote
		}
		return "", fmt.Errorf("failed to get remote URL: %w", err)
	}
	return url, nil
}

// CurrentBranch returns the name of the current branch.
// Returns ErrDetachedHead if the repository is in detached HEAD state.
func CurrentBranch(dir string) (string, error) {
	branch, err := git(dir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		if isExitError(err) {
			if IsDetachedHead(dir) {
				return "", ErrDetachedHead
			}
			return "", ErrNotGitRepo
		}
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return branch, nil
}

// IsDetachedHead returns true if dir is inside a repository whose HEAD is
// not a symbolic ref.
func IsDetachedHead(dir string) bool {
	if _, err := git(dir, "rev-parse", "--git-dir"); err != nil {
		return false
	}
	_, err := git(dir, "symbolic-ref", "-q", "HEAD")
	return err != nil
}

// HeadCommit returns the full hash of HEAD.
func HeadCommit(dir string) (string, error) {
	commit, err := git(dir, "rev-parse", "--verify", "-q", "HEAD")
	if err != nil {
		if isExitError(err) {
			return "", ErrNotGitRepo
		}
		return "", fmt.Errorf("failed to get HEAD commit: %w", err)
	}
	return commit, nil
}

// Describe collects the repository context of dir. Only a missing
// repository is an error; detached HEAD, an unborn branch or a missing
// remote leave the corresponding field empty.
func Describe(dir string) (Info, error) {
	root, err := RepoRoot(dir)
	if err != nil {
		return Info{}, err
	}

	info := Info{Root: root}
	if branch, err := CurrentBranch(root); err == nil {
		info.Branch = branch
	}
	if commit, err := HeadCommit(root); err == nil {
		info.Commit = commit
	}
	if url, err := RemoteURL(root, ""); err == nil {
		info.RemoteURL = url
	}
	return info, nil
}
