package source

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ErrNotRepository is returned when the application directory is not a git checkout.
var ErrNotRepository = errors.New("not a git repository")

// Revision identifies the checked-out application source.
type Revision struct {
	Hash    string    `json:"hash"`
	Branch  string    `json:"branch,omitempty"`
	Subject string    `json:"subject,omitempty"`
	When    time.Time `json:"when"`
	// Dirty is set when the worktree has uncommitted changes.
	Dirty bool `json:"dirty"`
}

// Short returns the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Hash) > 7 {
		return r.Hash[:7]
	}
	return r.Hash
}

func (r Revision) String() string {
	s := r.Short()
	if r.Branch != "" {
		s = r.Branch + "@" + s
	}
	if r.Dirty {
		s += " (modified)"
	}
	return s
}

// Inspect reads the HEAD revision of the repository at dir. Paths in exclude,
// relative to dir, are left out of the dirty check.
func Inspect(dir string, exclude ...string) (*Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: false})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("repository has no commits: %w", err)
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	rev := &Revision{
		Hash:    head.Hash().String(),
		Subject: firstLine(commit.Message),
		When:    commit.Committer.When,
	}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	if worktree, err := repo.Worktree(); err == nil {
		for _, path := range exclude {
			worktree.Excludes = append(worktree.Excludes, gitignore.ParsePattern("/"+strings.Trim(path, "/")+"/", nil))
		}
		if status, err := worktree.Status(); err == nil {
			rev.Dirty = !status.IsClean()
		}
	}

	return rev, nil
}

func firstLine(message string) string {
	for i, c := range message {
		if c == '\n' {
			return message[:i]
		}
	}
	return message
}
