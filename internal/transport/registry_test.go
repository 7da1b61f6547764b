package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullTransport struct{ Transport }

func TestRegistry(t *testing.T) {
	Register("test-null", func(options map[string]string) (Transport, error) {
		return &nullTransport{}, nil
	})

	assert.True(t, Known("test-null"))
	assert.False(t, Known("teleport"))
	assert.Contains(t, Kinds(), "test-null")

	tr, err := New("test-null", nil)
	require.NoError(t, err)
	assert.NotNil(t, tr)

	_, err = New("teleport", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport kind")

	assert.Panics(t, func() {
		Register("test-null", func(options map[string]string) (Transport, error) {
			return nil, nil
		})
	})
}
