package explorer

import (
	"path/filepath"
	"testing"

	"github.com/3Eeeecho/go-pan/internal/models"
	"github.com/3Eeeecho/go-pan/internal/pkg/metrics"
	"github.com/3Eeeecho/go-pan/internal/pkg/storage"
	"github.com/3Eeeecho/go-pan/internal/repositories"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	db      *gorm.DB
	repo    repositories.EntryRepository
	store   *storage.LocalStorage
	tm      TransactionManager
	metrics *metrics.Metrics
	tree    TreeService
	upload  UploadService
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "explorer.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Entry{}, &models.ShareLink{}))

	store, err := storage.NewLocalStorage(t.TempDir(), "md5")
	require.NoError(t, err)

	f := &fixture{
		db:      db,
		repo:    repositories.NewEntryRepository(db),
		store:   store,
		tm:      NewTransactionManager(db),
		metrics: metrics.New(),
	}
	f.tree = NewTreeService(f.repo, f.tm, store, f.metrics)
	f.upload = NewUploadService(f.repo, f.tm, store, f.metrics, maxBytes)
	return f
}
