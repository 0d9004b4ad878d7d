package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Parse_Defaults", func(t *testing.T) {
		t.Setenv("QFORMS_TOKEN_SECRET", "s3cret")

		cfg, err := Parse(flag.NewFlagSet("test", flag.ContinueOnError), nil)

		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:80", cfg.Addr)
		assert.Equal(t, DriverSQLite, cfg.DBDriver)
		assert.Equal(t, 120*time.Second, cfg.TokenTTL)
		assert.Equal(t, 50, cfg.PageSize)
		assert.Equal(t, "http://localhost:80", cfg.Url())
	})

	t.Run("Parse_FlagsOverrideEnv", func(t *testing.T) {
		t.Setenv("QFORMS_TOKEN_SECRET", "s3cret")
		t.Setenv("QFORMS_PORT", "8080")

		cfg, err := Parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{
			"-port", "9090", "-db-driver", "postgres", "-db-url", "postgres://x", "-page-size", "10",
		})

		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
		assert.Equal(t, DriverPostgres, cfg.DBDriver)
		assert.Equal(t, "postgres://x", cfg.DBUrl)
		assert.Equal(t, 10, cfg.PageSize)
	})

	t.Run("Parse_MissingSecret", func(t *testing.T) {
		t.Setenv("QFORMS_TOKEN_SECRET", "")

		_, err := Parse(flag.NewFlagSet("test", flag.ContinueOnError), nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "token-secret")
	})

	t.Run("Parse_UnknownDriver", func(t *testing.T) {
		t.Setenv("QFORMS_TOKEN_SECRET", "s3cret")

		_, err := Parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-db-driver", "mysql"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "mysql")
	})
}
