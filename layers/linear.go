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
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/types/shapes"
	"k8s.io/klog/v2"

	"github.com/foldmlx/foldmlx/initializers"
)

// LinearConfig is the configuration for a Linear layer, returned by
// [NewLinear]. Set the exported options and call Done to add the layer to
// the graph.
type LinearConfig struct {
	ctx       *context.Context
	x         *Node
	outputDim int

	useBias   bool
	scheme    initializers.Scheme
	schemeSet bool
	weightsInit,
	biasInit context.VariableInitializer
	seed int64
}

// NewLinear returns the configuration of a linear projection y = x*W + b
// whose weights are initialized by a named [initializers.Scheme].
//
// By default the layer has a zero-initialized bias and uses
// initializers.SchemeDefault (LeCun normal) for the weights. The
// transformation applies to the last axis of x, batching over the leading
// axes.
//
// The variables are created in the "linear" scope under ctx.
func NewLinear(ctx *context.Context, x *Node, outputDim int) *LinearConfig {
	return &LinearConfig{
		ctx:       ctx,
		x:         x,
		outputDim: outputDim,
		useBias:   true,
		scheme:    initializers.SchemeDefault,
		seed:      initializers.NoSeed,
	}
}

// WithBias sets whether the layer adds a bias after the projection.
// The default is true.
func (c *LinearConfig) WithBias(useBias bool) *LinearConfig {
	c.useBias = useBias
	return c
}

// Init selects the named initialization scheme for the weights. The scheme
// also selects the bias initializer: initializers.SchemeGating starts the
// bias at one, every other scheme at zero.
func (c *LinearConfig) Init(scheme initializers.Scheme) *LinearConfig {
	c.scheme = scheme
	c.schemeSet = true
	return c
}

// WithInitializer sets a custom initializer for the weights, taking
// precedence over Init. Setting both logs a warning.
func (c *LinearConfig) WithInitializer(initializer context.VariableInitializer) *LinearConfig {
	c.weightsInit = initializer
	return c
}

// WithBiasInitializer sets a custom initializer for the bias, e.g.
// initializers.ConstantFn(initializers.SoftplusInverseOfOne) for layers whose
// output passes through a softplus. It overrides the scheme's bias choice.
func (c *LinearConfig) WithBiasInitializer(initializer context.VariableInitializer) *LinearConfig {
	c.biasInit = initializer
	return c
}

// InitializerSeed sets the seed of the weight sampler for schemes that
// sample. The default is initializers.NoSeed, which seeds from the clock.
func (c *LinearConfig) InitializerSeed(seed int64) *LinearConfig {
	c.seed = seed
	return c
}

// Done adds the configured Linear layer to the graph and returns its output,
// shaped like x with the last axis resized to outputDim.
func (c *LinearConfig) Done() *Node {
	x := c.x
	g := x.Graph()
	ctx := c.ctx.In("linear")
	if c.outputDim <= 0 {
		Panicf("layers.Linear requires outputDim > 0, got %d", c.outputDim)
	}
	if x.Rank() == 0 {
		Panicf("input for layers.Linear needs to have rank >= 1, got %s", x.Shape())
	}

	weightsInit := c.weightsInit
	if weightsInit == nil {
		weightsInit = c.scheme.WeightsInitializer(c.seed)
	} else if c.schemeSet {
		klog.Warningf("layers.Linear in scope %q: both Init(%s) and WithInitializer given, using the custom initializer",
			ctx.Scope(), c.scheme)
	}

	dtype := x.DType()
	inputDim := x.Shape().Dimensions[x.Rank()-1]
	weightsVar := ctx.WithInitializer(weightsInit).
		VariableWithShape("weights", shapes.Make(dtype, inputDim, c.outputDim))
	if regularizer := regularizers.FromContext(ctx); regularizer != nil {
		// Only for the weights, not for the bias.
		regularizer(ctx, g, weightsVar)
	}
	output := linearTransform(x, weightsVar.ValueGraph(g))

	if c.useBias {
		biasInit := c.biasInit
		if biasInit == nil {
			biasInit = c.scheme.BiasesInitializer()
		}
		biasVar := ctx.WithInitializer(biasInit).
			VariableWithShape("biases", shapes.Make(dtype, c.outputDim))
		output = addBias(output, biasVar.ValueGraph(g))
	}
	return output
}
