package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New(Options{Level: "debug"}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New(Options{Level: "loud"}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New(Options{}).GetLevel())
}

func TestComponentWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Options{Level: "info"}, &buf)
	Component(logger, "forecast").WithField("user_id", "u1").Warn("fit failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "forecast", line["component"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "warning", line["level"])
}

func TestComponentWithoutLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Component(nil, "x").Info("dropped")
	})
}
