package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	log := New(LoggingConfig{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, log.Logger.GetLevel())
	_, isText := log.Logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	log = New(LoggingConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, log.Logger.GetLevel())
	_, isJSON := log.Logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestWithContextAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "info", Format: "json"})
	log.Logger.SetOutput(&buf)

	ctx := WithUserID(WithTraceID(context.Background(), "trace-1"), "user-9")
	log.Component("pets").WithContext(ctx).WithField("pet_id", "p1").Info("pet created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "user-9", entry["user_id"])
	assert.Equal(t, "pets", entry["component"])
	assert.Equal(t, "p1", entry["pet_id"])
	assert.Equal(t, "pet created", entry["msg"])
	assert.Equal(t, "trace-1", TraceID(ctx))
}
