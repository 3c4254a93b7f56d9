package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/pricelist/pkg/config"
)

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content, message string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Rules Author",
			Email: "rules@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

func upstream(t *testing.T) (string, *gogit.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	sha := commitFile(t, repo, dir, "rules/perfume.yaml", "version: \"1.0\"\n", "initial rules")
	return dir, repo, sha
}

func testConfig(repoDir, localPath string) *config.GitConfig {
	return &config.GitConfig{
		Repository: repoDir,
		Branch:     "master", // go-git init creates "master"
		Path:       "rules",
		LocalPath:  localPath,
		Timeout:    30 * time.Second,
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.GitConfig
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "empty repository", cfg: &config.GitConfig{Branch: "main"}, wantErr: true},
		{name: "empty branch", cfg: &config.GitConfig{Repository: "https://example.com/rules.git"}, wantErr: true},
		{
			name: "unknown auth",
			cfg: &config.GitConfig{
				Repository: "https://example.com/rules.git",
				Branch:     "main",
				Auth:       config.GitAuthConfig{Type: "kerberos"},
			},
			wantErr: true,
		},
		{
			name: "valid",
			cfg:  &config.GitConfig{Repository: "https://example.com/rules.git", Branch: "main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSource_SyncClonesThenPulls(t *testing.T) {
	repoDir, repo, firstSHA := upstream(t)
	local := filepath.Join(t.TempDir(), "clone")

	src, err := New(testConfig(repoDir, local), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	snap, err := src.Sync(ctx)
	if err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if snap.Commit.SHA != firstSHA || !snap.Updated {
		t.Errorf("first Sync() = %+v, want commit %s", snap, firstSHA)
	}
	if snap.RulesPath != filepath.Join(local, "rules") {
		t.Errorf("RulesPath = %q", snap.RulesPath)
	}
	if _, err := os.Stat(filepath.Join(snap.RulesPath, "perfume.yaml")); err != nil {
		t.Errorf("rule document not checked out: %v", err)
	}

	snap, err = src.Sync(ctx)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if snap.Updated {
		t.Error("second Sync() reported an update with no new commits")
	}

	secondSHA := commitFile(t, repo, repoDir, "rules/perfume.yaml", "version: \"1.1\"\n", "bump rules")

	snap, err = src.Sync(ctx)
	if err != nil {
		t.Fatalf("third Sync() error = %v", err)
	}
	if !snap.Updated || snap.Commit.SHA != secondSHA {
		t.Errorf("third Sync() = %+v, want commit %s", snap.Commit, secondSHA)
	}
	if len(snap.ChangedFiles) != 1 || snap.ChangedFiles[0] != "rules/perfume.yaml" {
		t.Errorf("ChangedFiles = %v", snap.ChangedFiles)
	}

	commit, err := src.Checkout(firstSHA)
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if commit.SHA != firstSHA {
		t.Errorf("Checkout() = %s, want %s", commit.SHA, firstSHA)
	}
	data, _ := os.ReadFile(filepath.Join(local, "rules", "perfume.yaml"))
	if string(data) != "version: \"1.0\"\n" {
		t.Errorf("worktree content = %q after checkout", data)
	}
}

func TestSource_ReopensExistingClone(t *testing.T) {
	repoDir, _, sha := upstream(t)
	local := filepath.Join(t.TempDir(), "clone")
	cfg := testConfig(repoDir, local)

	first, _ := New(cfg, nil)
	if _, err := first.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	second, _ := New(cfg, nil)
	snap, err := second.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() on existing clone error = %v", err)
	}
	if snap.Updated || snap.Commit.SHA != sha {
		t.Errorf("Sync() = %+v", snap)
	}
}

func TestSource_MissingRulesPath(t *testing.T) {
	repoDir, _, _ := upstream(t)
	cfg := testConfig(repoDir, filepath.Join(t.TempDir(), "clone"))
	cfg.Path = "does-not-exist"

	src, _ := New(cfg, nil)
	if _, err := src.Sync(context.Background()); err == nil {
		t.Error("Sync() expected error for missing rules path")
	}
}

func TestSource_CommitBeforeSync(t *testing.T) {
	src, _ := New(&config.GitConfig{Repository: "x", Branch: "main"}, nil)
	if _, err := src.CurrentCommit(); err == nil {
		t.Error("CurrentCommit() expected error before Sync")
	}
	if _, err := src.Checkout("abc"); err == nil {
		t.Error("Checkout() expected error before Sync")
	}
}

func TestNewAuthProvider(t *testing.T) {
	t.Setenv("PRICELIST_TEST_TOKEN", "secret")

	tests := []struct {
		name     string
		cfg      *config.GitAuthConfig
		wantType string
		wantErr  bool
	}{
		{name: "nil", cfg: nil, wantType: "none"},
		{name: "none", cfg: &config.GitAuthConfig{Type: "none"}, wantType: "none"},
		{name: "token", cfg: &config.GitAuthConfig{Type: "token", TokenEnv: "PRICELIST_TEST_TOKEN"}, wantType: "token"},
		{name: "token without env", cfg: &config.GitAuthConfig{Type: "token"}, wantErr: true},
		{name: "token env empty", cfg: &config.GitAuthConfig{Type: "token", TokenEnv: "PRICELIST_TEST_UNSET"}, wantErr: true},
		{name: "ssh", cfg: &config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/home/u/.ssh/id_ed25519"}, wantType: "ssh"},
		{name: "ssh without key", cfg: &config.GitAuthConfig{Type: "ssh"}, wantErr: true},
		{name: "unknown", cfg: &config.GitAuthConfig{Type: "oauth"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", p.Type(), tt.wantType)
			}
		})
	}
}

func TestSSHAuth_RejectsOpenPermissions(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id_rsa")
	if err := os.WriteFile(key, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSSHAuth(key, "").GetAuth(); err == nil {
		t.Error("GetAuth() expected error for world-readable key")
	}
}

func TestTokenAuth(t *testing.T) {
	if _, err := NewTokenAuth("").GetAuth(); err == nil {
		t.Error("GetAuth() expected error for empty token")
	}
	auth, err := NewTokenAuth("abc").GetAuth()
	if err != nil || auth == nil {
		t.Errorf("GetAuth() = %v, %v", auth, err)
	}
}
