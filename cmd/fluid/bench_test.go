package main

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/delaneyj/fluid/pkg/fluid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagation(t *testing.T) {
	g, err := buildPropagation(fluid.NewReactiveContext(), 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, g.effects)

	require.NoError(t, g.step(false))
	assert.Equal(t, 3+3*2, g.effects)

	require.NoError(t, g.step(true))
	assert.Equal(t, 3+3*2+3, g.effects)
	assert.Equal(t, 3, g.src.Peek())
	assert.Equal(t, -2, g.bias.Peek())
}

func TestLayers(t *testing.T) {
	cfg := layerConfig{
		name:           "tiny",
		width:          4,
		totalLayers:    3,
		staticFraction: 0.5,
		nSources:       2,
		readFraction:   1,
		iterations:     8,
	}

	res, err := runLayers(cfg)
	require.NoError(t, err)
	assert.Positive(t, res.count)

	again, err := runLayers(cfg)
	require.NoError(t, err)
	assert.Equal(t, res.sum, again.sum)
	assert.Equal(t, res.count, again.count)

	var out bytes.Buffer
	require.NoError(t, benchLayers(&out, zerolog.Nop(), []layerConfig{cfg}))
	assert.Contains(t, out.String(), "4x3 2 sources dynamic")
}

func TestLayerGraph(t *testing.T) {
	g, err := makeLayerGraph(fluid.NewReactiveContext(), layerConfig{
		width:          3,
		totalLayers:    2,
		staticFraction: 1,
		nSources:       2,
	}, new(int64))
	require.NoError(t, err)
	require.Len(t, g.layers, 1)

	leaves := g.layers[0]
	assert.Equal(t, []int{0 + 1, 1 + 2, 2 + 0}, []int{leaves[0].Peek(), leaves[1].Peek(), leaves[2].Peek()})
	assert.Len(t, removeElems(leaves, 2, rand.New(rand.NewSource(1))), 1)
}
