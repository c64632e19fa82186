package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

// RunGit runs git in dir and fails the test on error.
func RunGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test User", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User", "GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// InitRepo creates a repository in dir on branch main with one commit
// holding files, and returns the commit id.
func InitRepo(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	RequireGit(t)

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create repo dir: %v", err)
	}
	RunGit(t, dir, "init", "--quiet")
	RunGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	RunGit(t, dir, "config", "commit.gpgsign", "false")
	return CommitFiles(t, dir, files, "initial commit")
}

// CommitFiles writes files into the working tree of dir, commits them and
// returns the new commit id.
func CommitFiles(t *testing.T, dir string, files map[string]string, message string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	RunGit(t, dir, "add", "--all")
	RunGit(t, dir, "commit", "--quiet", "--allow-empty", "-m", message)
	return RunGit(t, dir, "rev-parse", "HEAD")
}

// CreateBranch creates and checks out branch name in dir.
func CreateBranch(t *testing.T, dir, name string) {
	t.Helper()
	RunGit(t, dir, "checkout", "--quiet", "-b", name)
}

// Checkout checks out an existing branch in dir.
func Checkout(t *testing.T, dir, name string) {
	t.Helper()
	RunGit(t, dir, "checkout", "--quiet", name)
}
