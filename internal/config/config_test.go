package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefusesToStartWithoutSharedSecret(t *testing.T) {
	t.Setenv("SHARED_SECRET", "")
	t.Setenv("DB_ADAPTER", "memory")

	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SHARED_SECRET")
}

func TestDefaults(t *testing.T) {
	t.Setenv("SHARED_SECRET", "s3cret")
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("PORT", "")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "memory", cfg.DBAdapter)
	require.Equal(t, "./migrations", cfg.MigrationsDir)
	require.Zero(t, cfg.TokenLifetime)
}

func TestTokenLifetimeParsing(t *testing.T) {
	t.Setenv("SHARED_SECRET", "s3cret")
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("TOKEN_LIFETIME", "168h")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, cfg.TokenLifetime)

	t.Setenv("TOKEN_LIFETIME", "soon")
	_, err = New()
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	c := &Config{
		PostgresHost:     "db.internal",
		PostgresPort:     "5433",
		PostgresUser:     "svc",
		PostgresPassword: "pw",
		PostgresDB:       "perimeter",
		PostgresSSLMode:  "require",
	}
	dsn, err := c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=5433 user=svc dbname=perimeter sslmode=require password=pw", dsn)

	// An explicit DSN wins over the parts.
	c.PostgresDSN = "postgres://u:p@h/db"
	dsn, err = c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@h/db", dsn)

	_, err = (&Config{}).BuildPostgresDSN()
	require.Error(t, err)
}

func TestUnsupportedAdapterRejected(t *testing.T) {
	t.Setenv("SHARED_SECRET", "s3cret")
	t.Setenv("DB_ADAPTER", "mongodb")

	_, err := New()
	require.Error(t, err)
}
