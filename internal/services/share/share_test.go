package share

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/models"
	"github.com/3Eeeecho/go-pan/internal/pkg/cache"
	"github.com/3Eeeecho/go-pan/internal/pkg/storage"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/3Eeeecho/go-pan/internal/repositories"
	"github.com/3Eeeecho/go-pan/internal/services/explorer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	shareRepo repositories.ShareRepository
	tree      explorer.TreeService
	upload    explorer.UploadService
	svc       *shareService
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "share.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Entry{}, &models.ShareLink{}))

	store, err := storage.NewLocalStorage(t.TempDir(), "md5")
	require.NoError(t, err)

	entryRepo := repositories.NewEntryRepository(db)
	shareRepo := repositories.NewShareRepository(db)
	tm := explorer.NewTransactionManager(db)
	attempts := cache.NewMemoryCache(0)
	t.Cleanup(attempts.Close)

	f := &fixture{
		db:        db,
		shareRepo: shareRepo,
		tree:      explorer.NewTreeService(entryRepo, tm, store, nil),
		upload:    explorer.NewUploadService(entryRepo, tm, store, nil, 0),
		clock:     baseTime,
	}
	svc := NewShareService(shareRepo, entryRepo, store, attempts, nil, config.ShareConfig{
		MaxPasswordAttempts: 3,
		AttemptWindow:       time.Minute,
	}).(*shareService)
	svc.hashCost = bcrypt.MinCost
	svc.now = func() time.Time { return f.clock }
	f.svc = svc
	return f
}

func (f *fixture) file(t *testing.T, name, content string, parent *uint64) *models.Entry {
	t.Helper()
	e, err := f.upload.SaveFile(context.Background(), explorer.UploadRequest{
		Reader: strings.NewReader(content), Name: name, ParentID: parent, Actor: "alice",
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) folder(t *testing.T, name string, parent *uint64) *models.Entry {
	t.Helper()
	e, err := f.tree.CreateFolder(context.Background(), "alice", name, parent)
	require.NoError(t, err)
	return e
}

func TestRandomKey(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		key, err := RandomKey()
		require.NoError(t, err)
		require.Len(t, key, 8)
		for _, r := range key {
			assert.True(t, strings.ContainsRune(keyAlphabet, r))
		}
		seen[key] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestExpiresAt(t *testing.T) {
	at, err := ExpiresAt("1d", baseTime)
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(24*time.Hour), *at)

	at, err = ExpiresAt("never", baseTime)
	require.NoError(t, err)
	assert.Nil(t, at)

	at, err = ExpiresAt("", baseTime)
	require.NoError(t, err)
	assert.Nil(t, at)

	_, err = ExpiresAt("2w", baseTime)
	assert.ErrorIs(t, err, xerr.ErrInvalidExpiry)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitPath("/a//b/"))
	assert.Empty(t, SplitPath(""))
}

func TestCreateShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.file(t, "doc.txt", "hello", nil)

	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID, Password: "pw", ExpiresIn: "3h"})
	require.NoError(t, err)
	assert.Len(t, share.ShareKey, 8)
	assert.True(t, share.AllowDownload)
	assert.True(t, share.HasPassword)
	assert.NotEqual(t, "pw", *share.PasswordHash)
	require.NotNil(t, share.ExpiresAt)
	assert.Equal(t, baseTime.Add(3*time.Hour), *share.ExpiresAt)
	assert.Equal(t, "alice", share.CreatedBy)

	_, err = f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: 999})
	assert.ErrorIs(t, err, xerr.ErrEntryNotFound)

	_, err = f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID, ExpiresIn: "forever"})
	assert.ErrorIs(t, err, xerr.ErrInvalidExpiry)

	no := false
	locked, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID, AllowDownload: &no})
	require.NoError(t, err)
	stored, err := f.shareRepo.FindByID(ctx, locked.ID)
	require.NoError(t, err)
	assert.False(t, stored.AllowDownload)
}

func TestCreateShare_KeyCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.file(t, "doc.txt", "hello", nil)

	f.svc.newKey = func() (string, error) { return "SAMEKEY1", nil }
	_, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID})
	require.NoError(t, err)

	_, err = f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID})
	assert.ErrorIs(t, err, xerr.ErrShareKeyExhausted)
	assert.Equal(t, xerr.KindServer, xerr.KindOf(err))

	keys := []string{"SAMEKEY1", "SAMEKEY1", "FRESHKEY"}
	f.svc.newKey = func() (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}
	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, "FRESHKEY", share.ShareKey)
}

func TestResolve_Expiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.file(t, "doc.txt", "hello", nil)

	hourly, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID, ExpiresIn: "1h"})
	require.NoError(t, err)
	forever, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, hourly.ShareKey, nil, Access{})
	require.NoError(t, err)

	f.clock = baseTime.Add(time.Hour)
	_, err = f.svc.Resolve(ctx, hourly.ShareKey, nil, Access{})
	assert.ErrorIs(t, err, xerr.ErrShareExpired)
	assert.Equal(t, xerr.KindExpired, xerr.KindOf(err))

	past := baseTime.Add(-time.Second)
	require.NoError(t, f.db.Model(&models.ShareLink{}).Where("id = ?", hourly.ID).Update("expires_at", past).Error)
	f.clock = baseTime
	_, err = f.svc.Resolve(ctx, hourly.ShareKey, nil, Access{})
	assert.ErrorIs(t, err, xerr.ErrShareExpired)

	f.clock = baseTime.AddDate(10, 0, 0)
	view, err := f.svc.Resolve(ctx, forever.ShareKey, nil, Access{})
	require.NoError(t, err)
	assert.True(t, view.IsFile)
	assert.Equal(t, doc.ID, view.Root.ID)

	_, err = f.svc.Resolve(ctx, "nope0000", nil, Access{})
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
}

func TestResolve_Password(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.file(t, "doc.txt", "hello", nil)
	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID, Password: "open sesame"})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{Client: "1.2.3.4"})
	assert.ErrorIs(t, err, xerr.ErrSharePasswordRequired)
	assert.Equal(t, xerr.KindPasswordRequired, xerr.KindOf(err))

	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{Password: "wrong", Client: "1.2.3.4"})
	assert.ErrorIs(t, err, xerr.ErrSharePasswordIncorrect)
	assert.Equal(t, xerr.KindPasswordMismatch, xerr.KindOf(err))

	view, err := f.svc.Resolve(ctx, share.ShareKey, nil, Access{Password: "open sesame", Client: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, view.Current.ID)
}

func TestResolve_PasswordAttemptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.file(t, "doc.txt", "hello", nil)
	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID, Password: "pw"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{Password: "bad", Client: "10.0.0.1"})
		assert.ErrorIs(t, err, xerr.ErrSharePasswordIncorrect)
	}
	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{Password: "pw", Client: "10.0.0.1"})
	assert.ErrorIs(t, err, xerr.ErrTooManyAttempts)

	// 其它客户端不受影响，成功后计数清零
	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{Password: "bad", Client: "10.0.0.2"})
	assert.ErrorIs(t, err, xerr.ErrSharePasswordIncorrect)
	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{Password: "pw", Client: "10.0.0.2"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{Password: "pw", Client: "10.0.0.2"})
		require.NoError(t, err)
	}
}

func TestResolve_FolderPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.folder(t, "F", nil)
	a := f.folder(t, "a", &root.ID)
	b := f.folder(t, "b", &a.ID)
	f.file(t, "note.txt", "n", &a.ID)
	f.file(t, "deep.md", "d", &b.ID)
	sibling := f.folder(t, "secret", nil)
	f.file(t, "private.txt", "p", &sibling.ID)

	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: root.ID})
	require.NoError(t, err)

	view, err := f.svc.Resolve(ctx, share.ShareKey, []string{"a", "b"}, Access{})
	require.NoError(t, err)
	assert.False(t, view.IsFile)
	assert.Equal(t, b.ID, view.Current.ID)
	require.Len(t, view.Breadcrumbs, 3)
	assert.Equal(t, []string{"F", "a", "b"}, []string{view.Breadcrumbs[0].Name, view.Breadcrumbs[1].Name, view.Breadcrumbs[2].Name})
	require.Len(t, view.Children, 1)
	assert.Equal(t, "deep.md", view.Children[0].Name)

	view, err = f.svc.Resolve(ctx, share.ShareKey, []string{"a"}, Access{})
	require.NoError(t, err)
	require.Len(t, view.Children, 2)
	assert.Equal(t, "b", view.Children[0].Name)
	assert.Equal(t, "folder", view.Children[0].IconClass)

	for _, path := range [][]string{{"a", "x"}, {"a", "note.txt"}, {"..", "secret"}, {"secret"}} {
		_, err = f.svc.Resolve(ctx, share.ShareKey, path, Access{})
		assert.ErrorIs(t, err, xerr.ErrSharePathNotFound, "path %v", path)
	}
}

func TestResolve_FileShareRejectsPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.file(t, "doc.txt", "hello", nil)
	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, share.ShareKey, []string{"a"}, Access{})
	assert.ErrorIs(t, err, xerr.ErrInvalidSharePath)
	assert.Equal(t, xerr.KindValidation, xerr.KindOf(err))
}

func TestResolve_ContentGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.folder(t, "gone", nil)
	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: dir.ID})
	require.NoError(t, err)

	_, err = f.tree.DeleteRecursive(ctx, dir.ID)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{})
	assert.ErrorIs(t, err, xerr.ErrSharedContentGone)
	assert.Equal(t, xerr.KindNotFound, xerr.KindOf(err))
}

func TestUpdateAndDeleteShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.file(t, "doc.txt", "hello", nil)
	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID, Password: "pw", ExpiresIn: "1h"})
	require.NoError(t, err)

	never := ExpiryNever
	empty := ""
	no := false
	_, err = f.svc.UpdateShare(ctx, "mallory", share.ID, UpdateRequest{Password: &empty})
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	updated, err := f.svc.UpdateShare(ctx, "alice", share.ID, UpdateRequest{Password: &empty, ExpiresIn: &never, AllowDownload: &no})
	require.NoError(t, err)
	assert.False(t, updated.HasPassword)
	assert.Nil(t, updated.ExpiresAt)
	assert.False(t, updated.AllowDownload)

	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{})
	require.NoError(t, err)

	bad := "5y"
	_, err = f.svc.UpdateShare(ctx, "alice", share.ID, UpdateRequest{ExpiresIn: &bad})
	assert.ErrorIs(t, err, xerr.ErrInvalidExpiry)

	assert.ErrorIs(t, f.svc.DeleteShare(ctx, "mallory", share.ID), xerr.ErrPermissionDenied)
	require.NoError(t, f.svc.DeleteShare(ctx, "alice", share.ID))
	_, err = f.svc.Resolve(ctx, share.ShareKey, nil, Access{})
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
	assert.ErrorIs(t, f.svc.DeleteShare(ctx, "alice", share.ID), xerr.ErrShareNotFound)
}

func TestDownloadShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.folder(t, "pub", nil)
	sub := f.folder(t, "sub", &dir.ID)
	doc := f.file(t, "doc.txt", "hello", &sub.ID)

	share, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: dir.ID})
	require.NoError(t, err)

	got, err := f.svc.DownloadShared(ctx, share.ShareKey, []string{"sub"}, "doc.txt", Access{})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = f.svc.DownloadShared(ctx, share.ShareKey, nil, "sub", Access{})
	assert.ErrorIs(t, err, xerr.ErrCannotDownloadFolder)
	_, err = f.svc.DownloadShared(ctx, share.ShareKey, nil, "", Access{})
	assert.ErrorIs(t, err, xerr.ErrCannotDownloadFolder)
	_, err = f.svc.DownloadShared(ctx, share.ShareKey, []string{"sub"}, "missing.txt", Access{})
	assert.ErrorIs(t, err, xerr.ErrEntryNotFound)

	no := false
	_, err = f.svc.UpdateShare(ctx, "alice", share.ID, UpdateRequest{AllowDownload: &no})
	require.NoError(t, err)
	_, err = f.svc.DownloadShared(ctx, share.ShareKey, []string{"sub"}, "doc.txt", Access{})
	assert.ErrorIs(t, err, xerr.ErrDownloadDisabled)

	fileShare, err := f.svc.CreateShare(ctx, "alice", CreateRequest{EntryID: doc.ID})
	require.NoError(t, err)
	got, err = f.svc.DownloadShared(ctx, fileShare.ShareKey, nil, "", Access{})
	require.NoError(t, err)
	assert.Equal(t, doc.PhysicalPath, got.PhysicalPath)
}

func TestListShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.folder(t, "dir", nil)
	older := f.file(t, "older.txt", "o", nil)
	newer := f.file(t, "newer.txt", "n", nil)
	require.NoError(t, f.db.Model(&models.Entry{}).Where("id = ?", older.ID).Update("created_at", baseTime.Add(-time.Hour)).Error)
	require.NoError(t, f.db.Model(&models.Entry{}).Where("id = ?", newer.ID).Update("created_at", baseTime).Error)

	mustShare := func(actor string, req CreateRequest) *models.ShareLink {
		s, err := f.svc.CreateShare(ctx, actor, req)
		require.NoError(t, err)
		return s
	}
	mustShare("alice", CreateRequest{EntryID: dir.ID})
	mustShare("alice", CreateRequest{EntryID: older.ID})
	mustShare("alice", CreateRequest{EntryID: newer.ID, Password: "pw"})
	mustShare("bob", CreateRequest{EntryID: newer.ID, ExpiresIn: "1h"})

	mine, err := f.svc.ListByCreator(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	public, err := f.svc.ListPublicShares(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "newer.txt", public[0].Entry.Name)
	assert.Equal(t, "older.txt", public[1].Entry.Name)
	assert.Equal(t, "text", public[1].Entry.IconClass)

	f.clock = baseTime.Add(2 * time.Hour)
	public, err = f.svc.ListPublicShares(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "older.txt", public[0].Entry.Name)
}
