package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumehq/resume-evaluator/internal/config"
)

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	lg := SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "resume-evaluator"})
	require.NotNil(t, lg)
	assert.True(t, lg.Enabled(nil, -4)) // debug enabled in dev

	lg = SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "resume-evaluator"})
	require.NotNil(t, lg)
	assert.False(t, lg.Enabled(nil, -4))
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupTracing(config.Config{})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}
