// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, durations, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
directory:
  base_url: "https://directory.example.org"
  bind_user: "admin"
  bind_password: "hunter2"
  refresh_interval: "30m"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ostiary:example.org"
  access_token: "syt_test"
  command_prefix: "!"
  admin_room: "!admins:example.org"

trust_domains:
  - room_id: "!staff:example.org"
    nickname: "staff"
    group_id: 3
  - room_id: "!guests:example.org"
    nickname: "guests"

weights:
  administrator: 5
  member: 2
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://directory.example.org", cfg.Directory.BaseURL)
	assert.Equal(t, "admin", cfg.Directory.BindUser)
	assert.Equal(t, 30*time.Minute, cfg.Directory.RefreshInterval)
	assert.Equal(t, "@ostiary:example.org", cfg.Matrix.UserID)

	require.Len(t, cfg.Domains, 2)
	assert.Equal(t, "!staff:example.org", cfg.Domains[0].RoomID)
	assert.Equal(t, "staff", cfg.Domains[0].Nickname)
	assert.Equal(t, 3, cfg.Domains[0].GroupID)
	assert.Equal(t, 0, cfg.Domains[1].GroupID)
}

func TestLoad_DefaultRefreshInterval(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
directory:
  base_url: "https://directory.example.org"
  bind_user: "admin"
  bind_password: "hunter2"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ostiary:example.org"
  access_token: "syt_test"
`))
	require.NoError(t, err)
	assert.Equal(t, 21600*time.Second, cfg.Directory.RefreshInterval)
}

func TestLoad_RefreshIntervalBelowMinimum(t *testing.T) {
	_, err := Load(writeConfig(t, `
directory:
  base_url: "https://directory.example.org"
  bind_user: "admin"
  bind_password: "hunter2"
  refresh_interval: "5s"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ostiary:example.org"
  access_token: "syt_test"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh_interval")
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("OSTIARY_TEST_PASSWORD", "s3cret")

	cfg, err := Load(writeConfig(t, `
directory:
  base_url: "https://directory.example.org"
  bind_user: "admin"
  bind_password: "${OSTIARY_TEST_PASSWORD}"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ostiary:example.org"
  access_token: "syt_test"
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Directory.BindPassword)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing base url",
			content: "matrix:\n  homeserver: \"https://m.example.org\"\n",
			wantErr: "directory.base_url",
		},
		{
			name: "bad base url scheme",
			content: `
directory:
  base_url: "ldap://directory.example.org"
  bind_user: "admin"
  bind_password: "hunter2"
`,
			wantErr: "http or https",
		},
		{
			name: "missing bind password",
			content: `
directory:
  base_url: "https://directory.example.org"
  bind_user: "admin"
`,
			wantErr: "directory.bind_password",
		},
		{
			name: "missing matrix access token",
			content: `
directory:
  base_url: "https://directory.example.org"
  bind_user: "admin"
  bind_password: "hunter2"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ostiary:example.org"
`,
			wantErr: "matrix.access_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_DuplicateTrustDomain(t *testing.T) {
	_, err := Load(writeConfig(t, `
directory:
  base_url: "https://directory.example.org"
  bind_user: "admin"
  bind_password: "hunter2"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ostiary:example.org"
  access_token: "syt_test"

trust_domains:
  - room_id: "!staff:example.org"
    nickname: "staff"
  - room_id: "!staff:example.org"
    nickname: "staff-again"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated")
}

func TestWeight_UnknownStateIsUnprivileged(t *testing.T) {
	cfg := &Config{Weights: map[string]int{"member": 2}}
	assert.Equal(t, 2, cfg.Weight("member"))
	assert.Equal(t, -1, cfg.Weight("banned"))
	assert.Equal(t, -1, cfg.Weight(""))
}

func TestExternalIDAttributeName_Default(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "matrix_id", cfg.ExternalIDAttributeName())

	cfg.Directory.ExternalIDAttribute = "telegram_id"
	assert.Equal(t, "telegram_id", cfg.ExternalIDAttributeName())
}
