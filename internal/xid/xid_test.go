package xid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesPrefixAndUUID(t *testing.T) {
	id := New("rec")
	require.True(t, strings.HasPrefix(id, "rec-"))

	parts := strings.SplitN(id, "-", 3)
	require.Len(t, parts, 3)
	_, err := uuid.Parse(parts[2])
	assert.NoError(t, err)

	assert.NotEqual(t, id, New("rec"))
}
