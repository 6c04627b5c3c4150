package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult_Allowed(t *testing.T) {
	res, err := parseResult([]interface{}{int64(1), int64(3), int64(10), int64(0)})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(3), res.CurrentCount)
	assert.Equal(t, int64(10), res.Limit)
	assert.Zero(t, res.RetryAfterSeconds)
}

func TestParseResult_Denied(t *testing.T) {
	res, err := parseResult([]interface{}{int64(0), int64(11), int64(10), int64(42)})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(42), res.RetryAfterSeconds)
}

func TestParseResult_RejectsMalformedReplies(t *testing.T) {
	_, err := parseResult("nope")
	assert.Error(t, err)

	_, err = parseResult([]interface{}{int64(1), int64(2)})
	assert.Error(t, err)

	_, err = parseResult([]interface{}{int64(1), "2", int64(3), int64(0)})
	assert.Error(t, err)
}

func TestScriptIsEmbedded(t *testing.T) {
	assert.Contains(t, rateLimitScript, "INCR")
	assert.Contains(t, rateLimitScript, "EXPIRE")
}
