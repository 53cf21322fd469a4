package environment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownKindFailsFast(t *testing.T) {
	_, err := New(context.Background(), Spec{Kind: "mainframe"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, `unknown environment kind "mainframe"`)
	assert.Contains(t, cfgErr.Message, "local")
	assert.Contains(t, cfgErr.Message, "docker")
}

func TestNewDockerFromSpecValidates(t *testing.T) {
	_, err := New(context.Background(), Spec{Kind: "docker"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "image")
}

func TestNewLocalFromSpec(t *testing.T) {
	env, err := New(context.Background(), Spec{Kind: "local", Timeout: 5})
	require.NoError(t, err)
	defer env.Close()

	local, ok := env.(*LocalEnvironment)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, local.config.Timeout)

	result, err := env.Execute(context.Background(), "echo from-spec")
	require.NoError(t, err)
	assert.Equal(t, "from-spec\n", result.Output)
}
