package randhex

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]*$`)

func TestString(t *testing.T) {
	for _, n := range []int{0, 1, 58, 60, 61, 64} {
		s, err := String(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
		assert.Regexp(t, hexPattern, s)
	}

	a, _ := String(64)
	b, _ := String(64)
	assert.NotEqual(t, a, b)
}
