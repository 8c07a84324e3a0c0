package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := newLogger(buf, &Config{AppEnv: "staging", LogFormat: "json", LogLevel: "warn"})
	logger.Info("dropped")
	logger.Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["msg"])
	require.Equal(t, "staging", entry["env"])
}
