package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/kachraalert/kachra-auth"
)

// testConfig implements auth.Config with values tests can tweak.
type testConfig struct {
	accessKey        string
	refreshKey       string
	accessTTL        time.Duration
	refreshDuration  time.Duration
	rememberDuration time.Duration
	issuer           string
	audience         string
	cookieDomain     string
	cookiePath       string
	cookieSecure     bool
	environment      string
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessKey:        "test-access-secret",
		refreshKey:       "test-refresh-secret",
		accessTTL:        15 * time.Minute,
		refreshDuration:  7 * 24 * time.Hour,
		rememberDuration: 30 * 24 * time.Hour,
		issuer:           "kachra-test",
		audience:         "kachra-app",
		cookiePath:       "/api/v1/auth",
		environment:      "development",
	}
}

func (c *testConfig) GetAccessSigningKey() string                { return c.accessKey }
func (c *testConfig) GetRefreshSigningKey() string               { return c.refreshKey }
func (c *testConfig) GetAccessTokenTTL() time.Duration           { return c.accessTTL }
func (c *testConfig) GetRefreshTokenDuration() time.Duration     { return c.refreshDuration }
func (c *testConfig) GetRefreshRememberDuration() time.Duration  { return c.rememberDuration }
func (c *testConfig) GetIssuer() string                          { return c.issuer }
func (c *testConfig) GetAudience() string                        { return c.audience }
func (c *testConfig) GetCookieDomain() string                    { return c.cookieDomain }
func (c *testConfig) GetCookiePath() string                      { return c.cookiePath }
func (c *testConfig) GetCookieSecure() bool                      { return c.cookieSecure }
func (c *testConfig) GetEnvironment() string                     { return c.environment }

// capturingSink records activity events for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingSink) byType(eventType auth.ActivityEventType) []auth.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []auth.ActivityEvent
	for _, evt := range c.events {
		if evt.EventType == eventType {
			out = append(out, evt)
		}
	}
	return out
}

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

	dsn := fmt.Sprintf("file:authtest%d?mode=memory&cache=shared", seq)
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)

	// Shared-cache memory databases vanish when the last connection
	// closes; pin one open for the test's lifetime.
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
	root := "data/sql/migrations/sqlite"

	entries, err := fs.ReadDir(migrations, root)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := fs.ReadFile(migrations, root+"/"+name)
		require.NoError(t, err)

		for _, stmt := range strings.Split(string(contents), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err, "migration %s", name)
		}
	}
}

type testHarness struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	codec    auth.TokenCodec
	manager  *auth.SessionManager
	config   *testConfig
	sink     *capturingSink
}

func newTestHarness(t *testing.T, cfg *testConfig) *testHarness {
	t.Helper()

	if cfg == nil {
		cfg = newTestConfig()
	}

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())

	codec, err := auth.NewTokenService(cfg, nil)
	require.NoError(t, err)

	sink := &capturingSink{}
	manager, err := auth.NewSessionManager(repo, codec, cfg, auth.WithActivitySink(sink))
	require.NoError(t, err)

	return &testHarness{
		db:      db,
		repo:    repo,
		codec:   codec,
		manager: manager,
		config:  cfg,
		sink:    sink,
	}
}

func registerTestUser(t *testing.T, h *testHarness, email string) *auth.AuthResult {
	t.Helper()

	result, err := h.manager.Register(context.Background(), auth.RegisterPayload{
		AccountType: auth.AccountTypeResident,
		Name:        "Test Resident",
		Email:       email,
		Phone:       "+9779841000000",
		Password:    "sekrit-password",
		Society:     "Green Valley",
	}, auth.RequestMeta{IP: "127.0.0.1", UserAgent: "go-test"})
	require.NoError(t, err)
	require.NotNil(t, result)

	return result
}
