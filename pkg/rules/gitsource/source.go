// Package gitsource fetches rule documents from a git repository.
//
// A Source clones the configured repository on first use and pulls on
// later syncs. The commit SHA of the checked-out revision identifies the
// rule set in audit records.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/pricelist/pkg/config"
)

// CommitInfo describes the checked-out commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// ShortSHA returns the first 12 characters of the commit SHA.
func (c *CommitInfo) ShortSHA() string {
	if len(c.SHA) > 12 {
		return c.SHA[:12]
	}
	return c.SHA
}

// Snapshot is the result of a sync.
type Snapshot struct {
	// RulesPath is the rule document or directory inside the clone.
	RulesPath string

	// Commit is the checked-out commit.
	Commit *CommitInfo

	// Updated reports whether the sync moved HEAD.
	Updated bool

	// ChangedFiles lists repository paths changed by the pull.
	ChangedFiles []string
}

// Source manages the local clone of a rules repository.
type Source struct {
	config    *config.GitConfig
	localPath string
	auth      AuthProvider
	repo      *gogit.Repository
	mu        sync.Mutex
	logger    *slog.Logger
}

// New validates cfg and prepares a Source. Nothing is fetched until Sync.
func New(cfg *config.GitConfig, logger *slog.Logger) (*Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}

	auth, err := NewAuthProvider(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "pricelist-rules")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		config:    cfg,
		localPath: localPath,
		auth:      auth,
		logger:    logger.With("component", "rules.gitsource"),
	}, nil
}

// Sync clones the repository, or pulls when a clone already exists, and
// returns the rules location and commit.
func (s *Source) Sync(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	snap := &Snapshot{RulesPath: filepath.Join(s.localPath, s.config.Path)}

	if err := s.open(); err != nil {
		return nil, err
	}

	if s.repo == nil {
		if err := s.clone(ctx); err != nil {
			return nil, err
		}
		snap.Updated = true
	} else {
		from, to, err := s.pull(ctx)
		if err != nil {
			return nil, err
		}
		if from != to {
			snap.Updated = true
			files, err := s.changedFiles(from, to)
			if err != nil {
				return nil, fmt.Errorf("failed to get changed files: %w", err)
			}
			snap.ChangedFiles = files
		}
	}

	commit, err := s.currentCommit()
	if err != nil {
		return nil, err
	}
	snap.Commit = commit

	if _, err := os.Stat(snap.RulesPath); err != nil {
		return nil, fmt.Errorf("rules path %q not found in repository: %w", s.config.Path, err)
	}

	s.logger.Info("rules repository synced",
		"repository", s.config.Repository,
		"branch", s.config.Branch,
		"commit", commit.ShortSHA(),
		"updated", snap.Updated,
		"auth", s.auth.Type(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return snap, nil
}

// open attaches to an existing clone, if any.
func (s *Source) open() error {
	if s.repo != nil {
		return nil
	}
	if _, err := os.Stat(filepath.Join(s.localPath, ".git")); err != nil {
		return nil
	}
	repo, err := gogit.PlainOpen(s.localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo: %w", err)
	}
	s.repo = repo
	return nil
}

func (s *Source) clone(ctx context.Context) error {
	if err := os.MkdirAll(s.localPath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	auth, err := s.auth.GetAuth()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.localPath, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Depth:         s.config.Depth,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	s.repo = repo
	return nil
}

func (s *Source) pull(ctx context.Context) (from, to string, err error) {
	ref, err := s.repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	from = ref.Hash().String()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return "", "", fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := s.auth.GetAuth()
	if err != nil {
		return "", "", fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return "", "", fmt.Errorf("failed to pull: %w", err)
	}

	ref, err = s.repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("failed to get new HEAD: %w", err)
	}
	return from, ref.Hash().String(), nil
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// Checkout detaches the worktree at sha, pinning the rule set to a known
// revision.
func (s *Source) Checkout(sha string) (*CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, fmt.Errorf("repository not initialized, call Sync first")
	}

	hash, err := s.repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return nil, fmt.Errorf("revision %s not found: %w", sha, err)
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := worktree.Checkout(&gogit.CheckoutOptions{Hash: *hash}); err != nil {
		return nil, fmt.Errorf("failed to checkout commit %s: %w", sha, err)
	}

	return s.currentCommit()
}

// CurrentCommit returns the checked-out commit.
func (s *Source) CurrentCommit() (*CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, fmt.Errorf("repository not initialized, call Sync first")
	}
	return s.currentCommit()
}

func (s *Source) currentCommit() (*CommitInfo, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Email:     commit.Author.Email,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    s.config.Branch,
	}, nil
}

func (s *Source) changedFiles(fromSHA, toSHA string) ([]string, error) {
	fromCommit, err := s.repo.CommitObject(plumbing.NewHash(fromSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := s.repo.CommitObject(plumbing.NewHash(toSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	var files []string
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else if change.From.Name != "" {
			files = append(files, change.From.Name)
		}
	}
	return files, nil
}

// LocalPath returns the clone directory.
func (s *Source) LocalPath() string {
	return s.localPath
}
