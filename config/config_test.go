package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, int64(150000), cfg.Billing.ConsultationFee)
	assert.Equal(t, "E-", cfg.Queue.EmergencyPrefix)
	assert.Equal(t, "Klinik Sentosa", cfg.Clinic.Name)
	assert.Len(t, cfg.Queue.Weekdays, 7)
	assert.Equal(t, time.Second, cfg.Outbox.PollInterval)
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clinic.yml")
	require.NoError(t, os.WriteFile(file, []byte("billing:\n  consultation_fee: 100000\ndatabase:\n  host: db.internal\n"), 0o600))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("CLINIC_DB_HOST", "db.override")
	t.Setenv("CLINIC_STORE_DRIVER", "postgres")
	t.Setenv("CLINIC_OUTBOX_POLL_INTERVAL", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(100000), cfg.Billing.ConsultationFee)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	chdir(t, t.TempDir())
	t.Setenv("CLINIC_STORE_DRIVER", "sqlite")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "store.driver")
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
