/*
 *	Copyright 2025 The foldmlx Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package layers

import (
	"fmt"
	"math"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"

	"github.com/foldmlx/foldmlx/initializers"
	"github.com/foldmlx/foldmlx/layers/activations"
)

// invSqrt2 keeps the variance of the sum of the skip connection and the
// block output at the variance of its inputs.
const invSqrt2 = 1.0 / math.Sqrt2

// ResidualConfig is the configuration for a Residual block, returned by
// [NewResidual]. Set the exported options and call Done to add the block to
// the graph.
type ResidualConfig struct {
	ctx *context.Context
	x   *Node

	numLayers  int
	activation activations.Type
	seed       int64
}

// NewResidual returns the configuration of a GemNet residual block: a stack
// of bias-free Dense layers of the input's width, added back to the input
// and rescaled by 1/sqrt(2).
//
// By default the block stacks 2 layers with the scaled SiLU.
//
// The variables are created in the "residual" scope under ctx, one
// "dense_%d" sub-scope per layer.
func NewResidual(ctx *context.Context, x *Node) *ResidualConfig {
	return &ResidualConfig{
		ctx:        ctx,
		x:          x,
		numLayers:  2,
		activation: activations.TypeScaledSilu,
		seed:       initializers.NoSeed,
	}
}

// NumLayers sets how many Dense layers the block stacks. The default is 2.
func (c *ResidualConfig) NumLayers(numLayers int) *ResidualConfig {
	c.numLayers = numLayers
	return c
}

// Activation sets the activation of every Dense layer in the block:
// activations.TypeScaledSilu (default) or activations.TypeNone.
func (c *ResidualConfig) Activation(activation activations.Type) *ResidualConfig {
	c.activation = activation
	return c
}

// InitializerSeed sets the seed of the He-orthogonal weight samplers. Each
// layer offsets the seed by its index so the layers draw distinct weights.
// The default is initializers.NoSeed, which seeds from the clock.
func (c *ResidualConfig) InitializerSeed(seed int64) *ResidualConfig {
	c.seed = seed
	return c
}

// Done adds the configured Residual block to the graph and returns its
// output, shaped like x.
func (c *ResidualConfig) Done() *Node {
	x := c.x
	ctx := c.ctx.In("residual")
	if c.numLayers < 1 {
		Panicf("layers.Residual requires NumLayers >= 1, got %d", c.numLayers)
	}
	if x.Rank() == 0 {
		Panicf("input for layers.Residual needs to have rank >= 1, got %s", x.Shape())
	}

	width := x.Shape().Dimensions[x.Rank()-1]
	hidden := x
	for ii := 0; ii < c.numLayers; ii++ {
		layerSeed := c.seed
		if layerSeed != initializers.NoSeed {
			layerSeed += int64(ii)
		}
		hidden = NewDense(ctx.In(fmt.Sprintf("dense_%d", ii)), hidden, width).
			WithBias(false).
			Activation(c.activation).
			InitializerSeed(layerSeed).
			Done()
	}
	return MulScalar(Add(x, hidden), invSqrt2)
}
