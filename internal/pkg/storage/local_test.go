package storage

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, algorithm string) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), algorithm)
	require.NoError(t, err)
	return s
}

func stagingEntries(t *testing.T, s *LocalStorage) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(s.Root(), StagingDirName))
	require.NoError(t, err)
	return entries
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`..\..\windows\win.ini`: "win.ini",
		"..":                    "",
		".":                     "",
		"":                      "",
		"   ":                   "",
		".hidden":               "hidden",
		"a<b>c:d|e?.txt":        "abcde.txt",
		"tab\tname\n.txt":       "tabname.txt",
		"照片 2024.jpg":           "照片 2024.jpg",
		"dir/":                  "dir",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), "input=%q", in)
	}

	long := strings.Repeat("界", 200)
	got := SanitizeName(long)
	assert.LessOrEqual(t, len(got), maxNameBytes)
	assert.True(t, strings.HasPrefix(long, got))
}

func TestNewLocalStorageRequiresAbsoluteRoot(t *testing.T) {
	_, err := NewLocalStorage("relative/root", "md5")
	assert.Error(t, err)
}

func TestStageAndDigestMD5(t *testing.T) {
	s := newTestStorage(t, "md5")
	content := bytes.Repeat([]byte("go-pan"), 20000)

	staged, err := s.Stage(bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), staged.Size)

	sum := md5.Sum(content)
	digest, err := s.Digest(staged.Path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), digest)
}

func TestDigestSHA256(t *testing.T) {
	s := newTestStorage(t, "sha256")
	staged, err := s.Stage(strings.NewReader("hello"), 0)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("hello"))
	digest, err := s.Digest(staged.Path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), digest)
}

func TestStageTooLargeLeavesNothing(t *testing.T) {
	s := newTestStorage(t, "md5")

	_, err := s.Stage(strings.NewReader("0123456789"), 5)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, stagingEntries(t, s))
}

func TestCommitAppendsSuffix(t *testing.T) {
	s := newTestStorage(t, "md5")
	dir := filepath.Join(s.Root(), "docs")
	require.NoError(t, s.EnsureDir(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("old"), 0o644))

	staged, err := s.Stage(strings.NewReader("new"), 0)
	require.NoError(t, err)

	// a_1.txt 在元数据中已被占用
	taken := func(name string) (bool, error) { return name == "a_1.txt", nil }
	finalPath, finalName, err := s.Commit(staged, dir, "a.txt", taken)
	require.NoError(t, err)
	assert.Equal(t, "a_2.txt", finalName)
	assert.Equal(t, filepath.Join(dir, "a_2.txt"), finalPath)

	data, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	old, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
	assert.Empty(t, stagingEntries(t, s))
}

func TestCommitSuffixFitsNameLimit(t *testing.T) {
	s := newTestStorage(t, "md5")
	dir := filepath.Join(s.Root(), "long")
	require.NoError(t, s.EnsureDir(dir))
	name := strings.Repeat("a", 251) + ".txt"
	require.Len(t, name, maxNameBytes)

	first, err := s.Stage(strings.NewReader("one"), 0)
	require.NoError(t, err)
	_, firstName, err := s.Commit(first, dir, name, nil)
	require.NoError(t, err)
	assert.Equal(t, name, firstName)

	second, err := s.Stage(strings.NewReader("two"), 0)
	require.NoError(t, err)
	secondPath, secondName, err := s.Commit(second, dir, name, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 249)+"_1.txt", secondName)
	assert.LessOrEqual(t, len(secondName), maxNameBytes)
	assert.True(t, s.Exists(secondPath))
}

func TestSuffixedName(t *testing.T) {
	assert.Equal(t, "a_3.txt", suffixedName("a", ".txt", 3))
	assert.Equal(t, strings.Repeat("界", 83)+"_12.md", suffixedName(strings.Repeat("界", 85), ".md", 12))
	assert.LessOrEqual(t, len(suffixedName("", "."+strings.Repeat("x", 254), 7)), maxNameBytes)
}

func TestMakeDirReportsCreation(t *testing.T) {
	s := newTestStorage(t, "md5")
	dir := filepath.Join(s.Root(), "made")

	made, err := s.MakeDir(dir)
	require.NoError(t, err)
	assert.True(t, made)

	made, err = s.MakeDir(dir)
	require.NoError(t, err)
	assert.False(t, made)

	_, err = s.MakeDir(filepath.Dir(s.Root()))
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestCommitRejectsOutsideRoot(t *testing.T) {
	s := newTestStorage(t, "md5")
	staged, err := s.Stage(strings.NewReader("x"), 0)
	require.NoError(t, err)

	_, _, err = s.Commit(staged, filepath.Dir(s.Root()), "x.txt", nil)
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestRemoveToleratesMissing(t *testing.T) {
	s := newTestStorage(t, "md5")

	existed, err := s.RemoveFile(filepath.Join(s.Root(), "ghost.txt"))
	require.NoError(t, err)
	assert.False(t, existed)

	existed, err = s.RemoveDir(filepath.Join(s.Root(), "ghost"))
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.RemoveDir(s.Root())
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestSweepStaging(t *testing.T) {
	s := newTestStorage(t, "md5")
	staleFile, err := s.Stage(strings.NewReader("stale"), 0)
	require.NoError(t, err)
	fresh, err := s.Stage(strings.NewReader("fresh"), 0)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(staleFile.Path, past, past))

	removed, err := s.SweepStaging(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, staleFile.Path)
	assert.FileExists(t, fresh.Path)
}
