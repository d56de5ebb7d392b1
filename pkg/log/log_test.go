package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	logger := WithComponent("fleet")
	logger.Info().Str("endpoint", "unix:///var/run/docker.sock").Msg("ready")

	out := buf.String()
	assert.Contains(t, out, `"component":"fleet"`)
	assert.Contains(t, out, `"endpoint":"unix:///var/run/docker.sock"`)
	assert.Contains(t, out, `"message":"ready"`)
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	Logger.Info().Msg("too quiet")
	Logger.Warn().Msg("loud enough")

	assert.NotContains(t, buf.String(), "too quiet")
	assert.Contains(t, buf.String(), "loud enough")
}

func TestInitUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "chatty", JSONOutput: true, Output: &buf})

	Logger.Debug().Msg("hidden")
	Logger.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
