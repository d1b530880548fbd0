package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weldr-dev/runr/internal/errors"
)

func TestExtractJSON(t *testing.T) {
	t.Run("extracts the delimited block", func(t *testing.T) {
		body := "some preamble\nBEGIN_JSON\n{\"decision\":\"approve\"}\nEND_JSON\ntrailing text"
		block, err := ExtractJSON(body)
		require.NoError(t, err)
		assert.Equal(t, `{"decision":"approve"}`, block)
	})

	t.Run("errors when BEGIN_JSON is missing", func(t *testing.T) {
		_, err := ExtractJSON("no markers here")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrWorkerParseFailed)
	})

	t.Run("errors when END_JSON is missing", func(t *testing.T) {
		_, err := ExtractJSON("BEGIN_JSON\n{\"a\":1}")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrWorkerParseFailed)
	})

	t.Run("errors on an empty block", func(t *testing.T) {
		_, err := ExtractJSON("BEGIN_JSON\n   \nEND_JSON")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrWorkerParseFailed)
	})
}

func TestConcatenateJSONL(t *testing.T) {
	lines := []map[string]any{
		{"type": "tool_use", "name": "bash"},
		{"text": "hello "},
		{"content": "world"},
		{"delta": "!"},
	}
	assert.Equal(t, "hello world!", ConcatenateJSONL(lines))
}
