package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithClientAddr(ctx, "127.0.0.1:5000")

	assert.Equal(t, []interface{}{"session_id", "sess-1", "client_addr", "127.0.0.1:5000"}, GetLogFields(ctx))
	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Equal(t, "127.0.0.1:5000", GetClientAddr(ctx))
	assert.Empty(t, GetRequestID(ctx))
}
