package requestid

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	ctx, id := New(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-123")
	assert.Equal(t, "test-123", FromContext(ctx))
}

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background(), "widget-42")
	assert.Equal(t, "widget-42", id)
	assert.Equal(t, "widget-42", FromContext(ctx))

	_, generated := Ensure(context.Background(), "")
	assert.NotEmpty(t, generated)

	_, tooLong := Ensure(context.Background(), strings.Repeat("x", 200))
	assert.NotEqual(t, strings.Repeat("x", 200), tooLong)
}
