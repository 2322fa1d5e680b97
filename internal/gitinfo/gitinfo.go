// Package gitinfo extracts repository metadata for build stamping. Everything
// here is best-effort: a report tree that is not a git checkout still builds.
package gitinfo

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
)

// Info describes the repository state a build was produced from.
type Info struct {
	Commit      string    // full HEAD hash
	ShortCommit string    // first 8 characters
	Branch      string    // branch name, empty on detached HEAD
	Dirty       bool      // uncommitted changes present
	CommittedAt time.Time // HEAD commit timestamp
}

// Describe inspects the repository containing dir (searching parent
// directories for .git the way the git CLI does).
func Describe(dir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	info := &Info{
		Commit:      head.Hash().String(),
		ShortCommit: head.Hash().String()[:8],
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	if commit, err := repo.CommitObject(head.Hash()); err == nil {
		info.CommittedAt = commit.Committer.When
	}

	// Worktree status determines the dirty flag. Errors here degrade to a
	// clean report rather than failing the caller.
	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}

	return info, nil
}
