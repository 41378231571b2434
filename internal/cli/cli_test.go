package cli_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/shipment-service-go/internal/auth"
	"github.com/andreasstove999/shipment-service-go/internal/cli"
)

// cleanEnv keeps a developer's shell and .env out of the command under test.
func cleanEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{"CONFIG_FILE", "JWT_SECRET", "EASYPOST_API_KEY", "STORE_DRIVER", "DATABASE_DSN", "RABBITMQ_URL"} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shipment-service dev")
}

func TestTokenCommand(t *testing.T) {
	cleanEnv(t)
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := run(t, "token", "--user", "42", "--ttl", "1h")
	require.NoError(t, err)

	userID, err := auth.NewTokens("cli-secret").Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenCommandNeedsUserAndSecret(t *testing.T) {
	cleanEnv(t)

	_, err := run(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user")

	_, err = run(t, "token", "--user", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	cleanEnv(t)
	t.Setenv("STORE_DRIVER", "memory")

	_, err := run(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "EASYPOST_API_KEY is required")
}

func TestMigrateDownNeedsPositiveSteps(t *testing.T) {
	cleanEnv(t)

	_, err := run(t, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps")
}
