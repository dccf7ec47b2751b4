package coord_test

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/kachraalert/kachra-auth"
	"github.com/kachraalert/kachra-auth/coord"
)

var testDBSeq int
var testDBSeqMu sync.Mutex

// newTestDB opens an isolated in-memory sqlite database with the package
// migrations applied.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	testDBSeqMu.Lock()
	testDBSeq++
	seq := testDBSeq
	testDBSeqMu.Unlock()

	dsn := fmt.Sprintf("file:coordtest%d?mode=memory&cache=shared", seq)
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)

	// Shared-cache memory databases vanish when the last connection
	// closes; pin one open for the test's lifetime. A single connection
	// also keeps concurrent writers from tripping sqlite table locks.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	applyMigrations(t, db)

	return db
}

func applyMigrations(t *testing.T, db *bun.DB) {
	t.Helper()

	migrations := auth.GetMigrationsFS()
	entries, err := fs.ReadDir(migrations, "data/sql/migrations/sqlite")
	require.NoError(t, err)

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		raw, err := fs.ReadFile(migrations, "data/sql/migrations/sqlite/"+name)
		require.NoError(t, err)

		for _, stmt := range strings.Split(string(raw), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err, "migration %s", name)
		}
	}
}

// testEnv wires the coordination services over a fresh database and a hub.
type testEnv struct {
	db        *bun.DB
	repo      coord.RepositoryManager
	hub       *coord.Hub
	alerts    *coord.AlertService
	billing   *coord.BillingService
	schedules *coord.ScheduleService
	reports   *coord.ReportService
	blobs     *coord.MemoryBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repo := coord.NewRepositoryManager(db)
	hub := coord.NewHub(nil)
	blobs := coord.NewMemoryBlobStore()

	return &testEnv{
		db:        db,
		repo:      repo,
		hub:       hub,
		alerts:    coord.NewAlertService(repo, hub, nil),
		billing:   coord.NewBillingService(repo, hub, nil),
		schedules: coord.NewScheduleService(repo, hub, nil),
		reports:   coord.NewReportService(repo, blobs, hub, nil),
		blobs:     blobs,
	}
}
