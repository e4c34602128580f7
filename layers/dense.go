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

// Package layers implements the neural network building blocks of geometric
// message-passing and protein structure models on top of gomlx contexts:
// Dense and Residual blocks with He-orthogonal weights and scaled SiLU,
// Linear projections with named initialization schemes, and the basis
// down-projection of efficient interaction blocks.
//
// All layers follow the gomlx convention: they are graph-building functions
// that take a context.Context owning the variables, configured through small
// builder types, and panic (see github.com/gomlx/exceptions) on invalid
// configuration or shapes.
package layers

import (
	"fmt"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/types/shapes"

	"github.com/foldmlx/foldmlx/initializers"
	"github.com/foldmlx/foldmlx/layers/activations"
)

// DenseConfig is the configuration for a Dense layer, returned by [NewDense].
// Set the exported options and call Done to add the layer to the graph.
type DenseConfig struct {
	ctx       *context.Context
	x         *Node
	outputDim int

	useBias     bool
	activation  activations.Type
	weightsInit context.VariableInitializer
	seed        int64
}

// NewDense returns the configuration of a dense block in the GemNet style: a
// linear transformation with He-orthogonal weights, optional zero-initialized
// bias and a scaled SiLU.
//
// By default the layer has no bias and applies the scaled SiLU; only
// activations.TypeScaledSilu and activations.TypeNone are supported, anything
// else panics at Done. The transformation applies to the last axis of x,
// batching over the leading axes.
//
// The variables are created in the "dense" scope under ctx; stacking several
// Dense blocks under one parent requires distinct scopes, e.g.
// ctx.In("block_0").
func NewDense(ctx *context.Context, x *Node, outputDim int) *DenseConfig {
	return &DenseConfig{
		ctx:        ctx,
		x:          x,
		outputDim:  outputDim,
		useBias:    false,
		activation: activations.TypeScaledSilu,
		seed:       initializers.NoSeed,
	}
}

// WithBias sets whether the layer adds a zero-initialized bias after the
// linear transformation. The default is false.
func (c *DenseConfig) WithBias(useBias bool) *DenseConfig {
	c.useBias = useBias
	return c
}

// Activation sets the activation applied after the transformation:
// activations.TypeScaledSilu (default) or activations.TypeNone for a purely
// linear block. Other activations panic at Done.
func (c *DenseConfig) Activation(activation activations.Type) *DenseConfig {
	c.activation = activation
	return c
}

// WithInitializer replaces the default He-orthogonal weight initialization
// with a custom initializer. The bias, if any, stays zero-initialized.
func (c *DenseConfig) WithInitializer(initializer context.VariableInitializer) *DenseConfig {
	c.weightsInit = initializer
	return c
}

// InitializerSeed sets the seed of the He-orthogonal weight sampler.
// The default is initializers.NoSeed, which seeds from the clock.
func (c *DenseConfig) InitializerSeed(seed int64) *DenseConfig {
	c.seed = seed
	return c
}

// Done adds the configured Dense layer to the graph and returns its output,
// shaped like x with the last axis resized to outputDim.
func (c *DenseConfig) Done() *Node {
	x := c.x
	g := x.Graph()
	ctx := c.ctx.In("dense")
	if c.outputDim <= 0 {
		Panicf("layers.Dense requires outputDim > 0, got %d", c.outputDim)
	}
	if x.Rank() == 0 {
		Panicf("input for layers.Dense needs to have rank >= 1, got %s", x.Shape())
	}
	if c.activation != activations.TypeScaledSilu && c.activation != activations.TypeNone {
		Panicf("layers.Dense activation must be %q or %q, got %q",
			activations.TypeScaledSilu, activations.TypeNone, c.activation)
	}

	dtype := x.DType()
	inputDim := x.Shape().Dimensions[x.Rank()-1]
	weightsInit := c.weightsInit
	if weightsInit == nil {
		weightsInit = initializers.HeOrthogonalFn(c.seed)
	}
	weightsVar := ctx.WithInitializer(weightsInit).
		VariableWithShape("weights", shapes.Make(dtype, inputDim, c.outputDim))
	if regularizer := regularizers.FromContext(ctx); regularizer != nil {
		// Only for the weights, not for the bias.
		regularizer(ctx, g, weightsVar)
	}
	output := linearTransform(x, weightsVar.ValueGraph(g))

	if c.useBias {
		biasVar := ctx.WithInitializer(initializers.Zero).
			VariableWithShape("biases", shapes.Make(dtype, c.outputDim))
		output = addBias(output, biasVar.ValueGraph(g))
	}
	return activations.Apply(c.activation, output)
}

// linearTransform contracts the last axis of x with the first axis of
// weights ([inputDim, outputDim]), batching over the leading axes of x.
func linearTransform(x, weights *Node) *Node {
	if x.Shape().Dimensions[x.Rank()-1] != weights.Shape().Dimensions[0] {
		Panicf("cannot multiply x (shape %s) by weights (shape %s): last axis of x must match fan-in",
			x.Shape(), weights.Shape())
	}
	if x.Rank() <= 2 {
		return Dot(x, weights)
	}

	// Einsum over all batch dimensions.
	axis := 'a'
	var batchAxes string
	for ii := 0; ii < x.Rank()-1; ii++ {
		batchAxes += string(axis)
		axis++
	}
	featureAxis := axis
	axis++
	outputAxis := axis
	equation := fmt.Sprintf("%s%c,%c%c->%s%c", batchAxes, featureAxis, featureAxis, outputAxis, batchAxes, outputAxis)
	return Einsum(equation, x, weights)
}

// addBias broadcasts a rank-1 bias over all leading axes of output.
func addBias(output, bias *Node) *Node {
	expandedShape := output.Shape().Clone()
	for ii := range expandedShape.Dimensions[:output.Rank()-1] {
		expandedShape.Dimensions[ii] = 1
	}
	return Add(output, ReshapeWithShape(bias, expandedShape))
}
