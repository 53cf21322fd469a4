package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownKindFailsFast(t *testing.T) {
	_, err := New(Spec{Kind: "telepathy"})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, `unknown model kind "telepathy"`)
	assert.Contains(t, cfgErr.Message, "deterministic")
	assert.Contains(t, cfgErr.Message, "gollm")
}

func TestNewDeterministicFromSpec(t *testing.T) {
	GlobalStats().Reset()
	m, err := New(Spec{Kind: "deterministic", Outputs: []string{"scripted"}, CostPerCall: 2.0})
	require.NoError(t, err)

	resp, err := m.Query(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "scripted", resp.Content)
	assert.Equal(t, 2.0, m.Cost())
}

func TestNewInterleavingFromSpec(t *testing.T) {
	GlobalStats().Reset()
	m, err := New(Spec{
		Kind: "interleaving",
		Models: []Spec{
			{Kind: "deterministic", Outputs: []string{"a1", "a2"}, ModelName: "a"},
			{Kind: "deterministic", Outputs: []string{"b1"}, ModelName: "b"},
		},
		Sequence: []int{0, 0, 1},
	})
	require.NoError(t, err)

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := m.Query(context.Background(), nil)
		require.NoError(t, err)
		got = append(got, resp.Content)
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, got)
}

func TestNewMetaModelRequiresSubModels(t *testing.T) {
	_, err := New(Spec{Kind: "roulette"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "at least one sub-model")
}

func TestNewInterleavingValidatesSequence(t *testing.T) {
	_, err := New(Spec{
		Kind:     "interleaving",
		Models:   []Spec{{Kind: "deterministic", Outputs: []string{"x"}}},
		Sequence: []int{0, 2},
	})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "out of range")
}

func TestNewBuildsNestedMetaModels(t *testing.T) {
	GlobalStats().Reset()
	m, err := New(Spec{
		Kind: "roulette",
		Models: []Spec{{
			Kind:     "interleaving",
			Models:   []Spec{{Kind: "deterministic", Outputs: []string{"nested"}}},
			Sequence: []int{0},
		}},
	})
	require.NoError(t, err)

	resp, err := m.Query(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "nested", resp.Content)
	assert.Equal(t, 1, m.CallCount())
}

func TestNewPropagatesSubModelErrors(t *testing.T) {
	_, err := New(Spec{Kind: "roulette", Models: []Spec{{Kind: "nope"}}})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, `unknown model kind "nope"`)
}
