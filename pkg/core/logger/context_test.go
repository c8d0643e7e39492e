package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetFallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, Get(nil))
	assert.NotNil(t, Get(context.Background()))
}

func TestWithAttachesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	attached := zap.New(core)

	ctx := With(context.Background(), attached)
	Get(ctx).Info("from context")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "from context", logs.All()[0].Message)
}
