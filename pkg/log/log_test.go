package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixcrm/helix/pkg/log"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, log.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, log.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, log.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, log.ParseLevel("verbose"), "unknown names fall back to info")
	assert.Equal(t, slog.LevelInfo, log.ParseLevel(""))
}
