package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithCommit(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tex"), []byte(`\documentclass{article}`), 0o600))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("main.tex")
	require.NoError(t, err)

	_, err = wt.Commit("initial report", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir
}

func TestDescribeCleanRepo(t *testing.T) {
	dir := initRepoWithCommit(t)

	info, err := Describe(dir)
	require.NoError(t, err)

	assert.Len(t, info.Commit, 40)
	assert.Equal(t, info.Commit[:8], info.ShortCommit)
	assert.False(t, info.Dirty)
	assert.False(t, info.CommittedAt.IsZero())
	assert.NotEmpty(t, info.Branch)
}

func TestDescribeDirtyRepo(t *testing.T) {
	dir := initRepoWithCommit(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tex"), []byte(`\documentclass{report}`), 0o600))

	info, err := Describe(dir)
	require.NoError(t, err)
	assert.True(t, info.Dirty)
}

func TestDescribeFromSubdirectory(t *testing.T) {
	dir := initRepoWithCommit(t)
	sub := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	info, err := Describe(sub)
	require.NoError(t, err)
	assert.Len(t, info.Commit, 40)
}

func TestDescribeNonRepo(t *testing.T) {
	_, err := Describe(t.TempDir())
	require.Error(t, err)
}
