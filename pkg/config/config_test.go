package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aniketwaliyan/tap-fastly/pkg/config"
	"github.com/aniketwaliyan/tap-fastly/pkg/env"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_FASTLY_TOKEN", "secret")
	path := writeConfig(t, "config.yaml", `
api_token: "${TEST_FASTLY_TOKEN}"
start_date: "2024-01-01T00:00:00Z"
request_timeout: 30s
sink:
  type: kafka
  brokers: ["localhost:9092"]
  topic: fastly
state:
  backend: file
  path: state.json
`)

	cfg, err := config.NewParser(nil).Parse(path)
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.APIToken)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime())
	require.Equal(t, 30*time.Second, cfg.Timeout())
	require.Equal(t, "fastly", cfg.Sink.Topic)
	require.Equal(t, "file", cfg.StateOptions().Backend)
	require.Equal(t, "state.json", cfg.StateOptions().Path)
}

func TestParse_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"api_token": "abc", "start_date": "2024-01-01"}`)

	cfg, err := config.NewParser(nil).Parse(path)
	require.NoError(t, err)
	require.Equal(t, "abc", cfg.APIToken)
	require.Zero(t, cfg.Timeout())
}

func TestParse_EnvFillsMissingKeys(t *testing.T) {
	path := writeConfig(t, "config.yaml", "api_token: ${TEST_UNSET_TOKEN}\n")

	cfg, err := config.NewParser(&env.Config{
		APIToken:     "from-env",
		StartDate:    "2024-02-01T00:00:00Z",
		StateDSN:     "postgres://localhost/tap",
		KafkaBrokers: []string{"k:9092"},
	}).Parse(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.APIToken)
	require.Equal(t, "2024-02-01T00:00:00Z", cfg.StartDate)
	require.Equal(t, "postgres://localhost/tap", cfg.State.DSN)
	require.Equal(t, []string{"k:9092"}, cfg.Sink.Brokers)
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"missing token":       `start_date: "2024-01-01"`,
		"unexpanded token":    "api_token: ${TEST_UNSET_TOKEN}\nstart_date: \"2024-01-01\"",
		"missing start":       `api_token: abc`,
		"bad start":           "api_token: abc\nstart_date: soon",
		"bad timeout":         "api_token: abc\nstart_date: \"2024-01-01\"\nrequest_timeout: forever",
		"bad sink":            "api_token: abc\nstart_date: \"2024-01-01\"\nsink: {type: s3}",
		"kafka without topic": "api_token: abc\nstart_date: \"2024-01-01\"\nsink: {type: kafka, brokers: [a]}",
		"bad backend":         "api_token: abc\nstart_date: \"2024-01-01\"\nstate: {backend: etcd}",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.NewParser(nil).Parse(writeConfig(t, "config.yaml", content))
			require.Error(t, err)
		})
	}
}

func TestParse_MissingKeyIsSentinel(t *testing.T) {
	_, err := config.NewParser(nil).Parse(writeConfig(t, "config.yaml", `start_date: "2024-01-01"`))
	require.ErrorIs(t, err, config.ErrMissingKey)
}

func TestParse_FileErrors(t *testing.T) {
	_, err := config.NewParser(nil).Parse(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "configuration file not found")

	_, err = config.NewParser(nil).Parse(writeConfig(t, "config.yaml", "api_token: [unclosed"))
	require.ErrorContains(t, err, "error parsing configuration")
}
