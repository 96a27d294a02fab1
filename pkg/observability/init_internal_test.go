package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewResource_CarriesServiceAndMode(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Mode = ModeStatus

	res, err := newResource(context.Background(), cfg)
	require.NoError(t, err)

	set := res.Set()

	mode, ok := set.Value(attribute.Key(attrResourceMode))
	require.True(t, ok)
	assert.Equal(t, string(ModeStatus), mode.AsString())

	name, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, defaultServiceName, name.AsString())

	version, ok := set.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())
}
