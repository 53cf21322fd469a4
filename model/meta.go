package model

import (
	"context"
	"math/rand"
)

// RouletteModel is a meta-model that delegates each call to a uniformly
// random member of its sub-models. Aggregate cost and call count are the
// sums across sub-models, so composites (including nested ones) satisfy the
// same Model contract as a single backend.
type RouletteModel struct {
	name   string
	models []Model
}

// NewRouletteModel composes the given sub-models.
func NewRouletteModel(models []Model) *RouletteModel {
	return &RouletteModel{name: "roulette", models: models}
}

// Name returns the meta-model name.
func (m *RouletteModel) Name() string {
	return m.name
}

// Cost returns the summed cost of all sub-models.
func (m *RouletteModel) Cost() float64 {
	total := 0.0
	for _, sub := range m.models {
		total += sub.Cost()
	}
	return total
}

// CallCount returns the summed call count of all sub-models.
func (m *RouletteModel) CallCount() int {
	total := 0
	for _, sub := range m.models {
		total += sub.CallCount()
	}
	return total
}

func (m *RouletteModel) pick() Model {
	return m.models[rand.Intn(len(m.models))]
}

// Query delegates to a randomly selected sub-model. The response is tagged
// with the sub-model's name so trajectories record which backend answered.
func (m *RouletteModel) Query(ctx context.Context, messages []Message) (Response, error) {
	sub := m.pick()
	resp, err := sub.Query(ctx, messages)
	if err != nil {
		return Response{}, err
	}
	if resp.ModelName == "" {
		resp.ModelName = sub.Name()
	}
	return resp, nil
}

// InterleavingModel delegates according to a fixed cyclic index sequence
// over its sub-models. With a nil sequence it round-robins by total call
// count. A sequence of [0, 0, 1] sends calls 1 and 2 to sub-model 0 and
// call 3 to sub-model 1, then repeats.
type InterleavingModel struct {
	RouletteModel
	sequence []int
}

// NewInterleavingModel composes sub-models with an optional delegation
// sequence.
func NewInterleavingModel(models []Model, sequence []int) *InterleavingModel {
	return &InterleavingModel{
		RouletteModel: RouletteModel{name: "interleaving", models: models},
		sequence:      sequence,
	}
}

func (m *InterleavingModel) pick() Model {
	n := m.CallCount()
	if len(m.sequence) == 0 {
		return m.models[n%len(m.models)]
	}
	return m.models[m.sequence[n%len(m.sequence)]]
}

// Query delegates to the sub-model selected by the sequence.
func (m *InterleavingModel) Query(ctx context.Context, messages []Message) (Response, error) {
	sub := m.pick()
	resp, err := sub.Query(ctx, messages)
	if err != nil {
		return Response{}, err
	}
	if resp.ModelName == "" {
		resp.ModelName = sub.Name()
	}
	return resp, nil
}
