package syslog

import (
	"errors"
	"testing"

	param "github.com/TermGraph/dygparam"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	return logs
}

func TestLogOnlyEnabledServices(t *testing.T) {
	logs := observe(t)
	param.DebugOn = false

	Log("loader", "batch submitted")
	Log("writer.description", "row written")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "batch submitted", entries[0].Message)
		assert.Equal(t, "loader", entries[0].LoggerName)
	}
}

func TestLogDebugOn(t *testing.T) {
	logs := observe(t)
	param.DebugOn = true
	defer func() { param.DebugOn = false }()

	Log("writer.description", "row written")
	assert.Equal(t, 1, logs.Len())
}

func TestAlertAndErrAlwaysWritten(t *testing.T) {
	logs := observe(t)
	param.DebugOn = false

	LogAlert("writer.rxnorm", "no SNOMED concept for RXCUI 123")
	LogErr("writer.rxnorm", errors.New("lookup failed"))

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "lookup failed", entries[1].Message)
	}
}

func TestLoggerPerPrefix(t *testing.T) {
	observe(t)
	assert.Same(t, Logger("regroup"), Logger("regroup"))
	assert.NotSame(t, Logger("regroup"), Logger("loader"))
}

func TestStartUnknownSink(t *testing.T) {
	err := Start(Options{Sink: "carrier-pigeon"})
	assert.Error(t, err)
}
