package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestWithContextAddsIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Get()
	Set(zap.New(core))
	defer Set(prev)

	ctx := ContextWithTask(ContextWithExchange(context.Background(), "ex-1"), "task-7")
	WithContext(ctx).Info("page sent")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "ex-1", fields["exchange_id"])
	assert.Equal(t, "task-7", fields["task_id"])
}

func TestAnnotateLeavesPlainContextAlone(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	Annotate(context.Background(), zap.New(core)).Debug("page decoded")
	Annotate(ContextWithExchange(context.Background(), "ex-2"), zap.New(core)).Debug("page decoded")

	require.Equal(t, 2, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
	assert.Equal(t, "ex-2", logs.All()[1].ContextMap()["exchange_id"])
}

func TestGetIsStable(t *testing.T) {
	assert.Same(t, Get(), Get())
}
