package notifications

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCursor(t *testing.T) {
	t.Parallel()

	t.Run("absent means from the beginning", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/stream", nil)
		id, err := parseCursor(r)
		require.NoError(t, err)
		assert.Zero(t, id)
	})

	t.Run("header wins over query", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/stream?after_id=5", nil)
		r.Header.Set(ResumeHeader, "12")
		id, err := parseCursor(r)
		require.NoError(t, err)
		assert.Equal(t, int64(12), id)
	})

	t.Run("query fallback", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/stream?after_id=5", nil)
		id, err := parseCursor(r)
		require.NoError(t, err)
		assert.Equal(t, int64(5), id)
	})

	t.Run("malformed cursors are rejected, never defaulted", func(t *testing.T) {
		t.Parallel()

		for name, raw := range map[string]string{
			"not a number": "abc",
			"negative":     "-1",
			"float":        "3.5",
			"overflow":     "99999999999999999999999999",
		} {
			name, raw := name, raw
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				r := httptest.NewRequest("GET", "/stream", nil)
				r.Header.Set(ResumeHeader, raw)
				_, err := parseCursor(r)
				require.ErrorIs(t, err, errInvalidCursor)
			})
		}
	})
}
