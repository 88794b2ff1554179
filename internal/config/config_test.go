package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeledger/homeledger/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Sweep.MergeAnnotations = true
	cfg.BankAccounts = []BankAccount{
		{ID: "checking", Name: "Everyday", Type: "checking", LastFour: "1234"},
	}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Database, got.Database)
	assert.Equal(t, cfg.Server, got.Server)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, cfg.Import, got.Import)
	assert.True(t, got.Sweep.MergeAnnotations)
	require.Len(t, got.BankAccounts, 1)
	assert.Equal(t, "Everyday", got.BankAccounts[0].Name)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "homeledger.db", cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "import", cfg.Import.Dir)
	assert.False(t, cfg.Sweep.MergeAnnotations)
	assert.Empty(t, cfg.BankAccounts)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  dsn: postgres://ledger@localhost/ledger?sslmode=disable
server:
  read_timeout: 5s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "import", cfg.Import.Dir)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "read_timeout: 15s")
	assert.Contains(t, contents, "merge_annotations: false")
	assert.NotContains(t, contents, "jwt_secret")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDBDriver, "mysql")
	t.Setenv(EnvDBDSN, "ledger:pw@tcp(localhost:3306)/ledger")
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvJWTSecret, "s3cret")
	t.Setenv(EnvLogLevel, "debug")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "ledger:pw@tcp(localhost:3306)/ledger", cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.Server.Addr, "empty values do not override")
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnvFile(filepath.Join(dir, ".env")), "missing file is fine")

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HOMELEDGER_JWT_SECRET=from-dotenv\n"), 0o644))
	t.Setenv(EnvJWTSecret, "")
	require.NoError(t, os.Unsetenv(EnvJWTSecret))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv(EnvJWTSecret))
}

func TestResolve(t *testing.T) {
	cfg := Default()
	cfg.Resolve("/srv/ledger")

	assert.Equal(t, "/srv/ledger/homeledger.db", cfg.Database.DSN)
	assert.Equal(t, "/srv/ledger/import", cfg.Import.Dir)
	assert.Equal(t, "/srv/ledger/logs/runs.csv", cfg.Log.RunLog)

	pg := Default()
	pg.Database.Driver = "postgres"
	pg.Database.DSN = "postgres://localhost/ledger"
	pg.Resolve("/srv/ledger")
	assert.Equal(t, "postgres://localhost/ledger", pg.Database.DSN)
}

func TestAccounts(t *testing.T) {
	cfg := Default()
	cfg.BankAccounts = []BankAccount{{ID: "visa", Name: "Visa", Type: "credit_card", LastFour: "9876"}}

	got := cfg.Accounts()
	require.Len(t, got, 1)
	assert.Equal(t, model.BankAccount{ID: "visa", Name: "Visa", Type: model.AccountTypeCreditCard, LastFour: "9876"}, got[0])
}
