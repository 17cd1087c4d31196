package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/taxlot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "Australia/Brisbane", cfg.Location().String())

	opts := cfg.LedgerOptions(nil)
	assert.Equal(t, taxlot.FIFO, opts.Method)
	assert.Equal(t, taxlot.AllocateBuy, opts.Fees)
}

func TestLoad_File(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: Australia/Sydney
lot_matching: hifo
brokerage_allocation: SPLIT
backend: json
data_path: ledger.json
quotes:
  file: prices.json
  stale_after: 2h
cgt_window_days: 30
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Australia/Sydney", cfg.Timezone)
	assert.Equal(t, BackendJSON, cfg.Backend)
	assert.Equal(t, "ledger.json", cfg.DataPath)
	assert.Equal(t, "prices.json", cfg.Quotes.File)
	assert.Equal(t, "$.quotes[*]", cfg.Quotes.Path, "unset fields keep their default")
	assert.Equal(t, "quotes.json", cfg.Quotes.Manual)
	assert.Equal(t, 2*time.Hour, cfg.Quotes.StaleAfter)
	assert.Equal(t, 30, cfg.CGTWindowDays)
	assert.Equal(t, "AUD", cfg.BaseCurrency)

	opts := cfg.LedgerOptions(nil)
	assert.Equal(t, taxlot.HIFO, opts.Method)
	assert.Equal(t, taxlot.AllocateSplit, opts.Fees)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TAXLOT_LOT_MATCHING", "SPECIFIC_ID")
	t.Setenv("TAXLOT_DATA_PATH", "env.db")
	t.Setenv("TAXLOT_LOG_PRETTY", "true")
	t.Setenv("TAXLOT_CGT_WINDOW_DAYS", "90")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "SPECIFIC_ID", cfg.LotMatching)
	assert.Equal(t, "env.db", cfg.DataPath)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, 90, cfg.CGTWindowDays)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TAXLOT_BASE_CURRENCY=USD\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TAXLOT_BASE_CURRENCY") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.BaseCurrency)
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"timezone", "TAXLOT_TIMEZONE", "Mars/Olympus"},
		{"method", "TAXLOT_LOT_MATCHING", "LIFO"},
		{"allocation", "TAXLOT_BROKERAGE_ALLOCATION", "NONE"},
		{"currency", "TAXLOT_BASE_CURRENCY", "XYZ1"},
		{"backend", "TAXLOT_BACKEND", "postgres"},
		{"window", "TAXLOT_CGT_WINDOW_DAYS", "0"},
		{"window not a number", "TAXLOT_CGT_WINDOW_DAYS", "soon"},
		{"pretty", "TAXLOT_LOG_PRETTY", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := Load("")
			assert.ErrorIs(t, err, taxlot.ErrInvalid)
		})
	}
}

func TestWrite(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), DefaultFile)
	want := Default()
	want.Backend = BackendJSON
	want.Quotes.StaleAfter = 15 * time.Minute
	require.NoError(t, want.Write(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
