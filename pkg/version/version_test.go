package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SephirothFFKH/LZXAuto/pkg/version"
)

func TestString_ContainsVersion(t *testing.T) {
	t.Parallel()

	s := version.String()
	assert.Contains(t, s, "lzxauto "+version.Version)
	assert.Contains(t, s, "built "+version.Date)
}
