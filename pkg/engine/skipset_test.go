package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SephirothFFKH/LZXAuto/pkg/engine"
)

func TestNewSkipSet_Normalizes(t *testing.T) {
	t.Parallel()

	set, err := engine.NewSkipSet([]string{".JPG", "png", " *.Zip ", ".jpg"})
	require.NoError(t, err)

	assert.Equal(t, []string{".jpg", ".png", ".zip"}, set.Extensions())
	assert.Equal(t, 3, set.Len())
}

func TestNewSkipSet_RejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "  ", ".", "a/b", `.x\y`} {
		_, err := engine.NewSkipSet([]string{bad})
		require.ErrorIs(t, err, engine.ErrInvalidExtension, "%q", bad)
	}
}

func TestSkipSet_Contains(t *testing.T) {
	t.Parallel()

	set, err := engine.NewSkipSet([]string{".jpg", ".tar.gz", ".gz"})
	require.NoError(t, err)

	assert.True(t, set.Contains("/photos/IMG_0001.JPG"))
	assert.True(t, set.Contains("/backup/site.tar.gz"))
	assert.False(t, set.Contains("/docs/readme.txt"))
	assert.False(t, set.Contains("/bin/noext"))
	assert.False(t, set.Contains("/photos.jpg/inside.txt"))

	var empty *engine.SkipSet
	assert.False(t, empty.Contains("a.jpg"))
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.Extensions())
}
