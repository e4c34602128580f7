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

// Package initializers implements the weight initialization schemes used by
// geometric message-passing and protein structure models: He-orthogonal
// initialization with per-output standardization, the truncated-normal family
// (LeCun and He scaled), Glorot uniform, fan-in normal, and the constant
// fills used by gating and final ("zero-init") projections.
//
// All constructors return a context.VariableInitializer, to be installed with
// Context.WithInitializer or passed to the layer builders in
// github.com/foldmlx/foldmlx/layers.
//
// The orthogonal and truncated-normal distributions cannot be expressed with
// the backend random ops, so values are sampled on the host in float64 and
// entered into the graph as constants of the variable's dtype. Weight layout
// follows the gomlx convention: the last axis indexes output units, all
// other axes feed into each output unit (the fan-in).
package initializers

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

// NoSeed can be given as the initialSeed of any sampling constructor, in
// which case a seed is taken from the nanosecond clock.
const NoSeed = int64(0)

// SoftplusInverseOfOne is the pre-activation value x for which
// softplus(x) == 1. Filling a head-weight variable with
// ConstantFn(SoftplusInverseOfOne) makes softplus-parameterized weights start
// at exactly one, as done for the per-head point weights of invariant point
// attention.
const SoftplusInverseOfOne = 0.541324854612918

// hostRng is a seeded host sampler shared by the closures an initializer
// constructor returns. Initializers may be called concurrently for different
// variables, hence the lock.
type hostRng struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newHostRng(initialSeed int64) *hostRng {
	if initialSeed == NoSeed {
		initialSeed = time.Now().UnixNano()
	}
	return &hostRng{rng: rand.New(rand.NewPCG(uint64(initialSeed), 0x9E3779B97F4A7C15))}
}

// normFloat64s returns n samples from a unit normal.
func (h *hostRng) normFloat64s(n int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	values := make([]float64, n)
	for ii := range values {
		values[ii] = h.rng.NormFloat64()
	}
	return values
}

// float64s returns n samples uniform in [0, 1).
func (h *hostRng) float64s(n int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	values := make([]float64, n)
	for ii := range values {
		values[ii] = h.rng.Float64()
	}
	return values
}

// fanInOut computes the fan-in and fan-out of a weight variable: the last
// axis indexes output units, every other axis contributes to the fan-in.
// Scalar and rank-1 shapes (biases) count as fan 1.
func fanInOut(shape shapes.Shape) (fanIn, fanOut int) {
	rank := shape.Rank()
	if rank < 2 {
		return 1, 1
	}
	fanIn = 1
	for _, dim := range shape.Dimensions[:rank-1] {
		fanIn *= dim
	}
	fanOut = shape.Dimensions[rank-1]
	return
}

// checkFloat panics if the variable's dtype is not a float: the samplers in
// this package have no meaning for integer or boolean variables.
func checkFloat(name string, shape shapes.Shape) {
	if !shape.DType.IsFloat() {
		Panicf("cannot initialize non-float variable with %s -- shape requested %s", name, shape)
	}
}

// materialize enters host-sampled values into the graph as a constant of the
// variable's dtype. Half-precision converts on the host; other float dtypes
// are cast in-graph from a float32 constant.
func materialize(g *Graph, values []float64, shape shapes.Shape) *Node {
	switch shape.DType {
	case dtypes.Float64:
		return Const(g, tensors.FromFlatDataAndDimensions(values, shape.Dimensions...))
	case dtypes.Float32:
		f32 := make([]float32, len(values))
		for ii, v := range values {
			f32[ii] = float32(v)
		}
		return Const(g, tensors.FromFlatDataAndDimensions(f32, shape.Dimensions...))
	case dtypes.Float16:
		f16 := make([]float16.Float16, len(values))
		for ii, v := range values {
			f16[ii] = float16.Fromfloat32(float32(v))
		}
		return Const(g, tensors.FromFlatDataAndDimensions(f16, shape.Dimensions...))
	default:
		f32 := make([]float32, len(values))
		for ii, v := range values {
			f32[ii] = float32(v)
		}
		return ConvertDType(Const(g, tensors.FromFlatDataAndDimensions(f32, shape.Dimensions...)), shape.DType)
	}
}

// Zero initializes variables with zero.
func Zero(g *Graph, shape shapes.Shape) *Node {
	return Zeros(g, shape)
}

// One initializes variables with one.
func One(g *Graph, shape shapes.Shape) *Node {
	return Ones(g, shape)
}

// ConstantFn returns an initializer that fills variables with the given
// value, converted to the variable's dtype.
func ConstantFn(value float64) context.VariableInitializer {
	return func(g *Graph, shape shapes.Shape) *Node {
		return FillScalar(g, shape, value)
	}
}

// GlorotUniformFn returns the Glorot (aka. Xavier) uniform initializer:
// values are sampled from U(-limit, limit) with
// limit = sqrt(6 / (fanIn+fanOut)).
//
// initialSeed seeds the host sampler; NoSeed picks a seed from the clock.
func GlorotUniformFn(initialSeed int64) context.VariableInitializer {
	h := newHostRng(initialSeed)
	return func(g *Graph, shape shapes.Shape) *Node {
		checkFloat("GlorotUniform", shape)
		fanIn, fanOut := fanInOut(shape)
		limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
		values := h.float64s(shape.Size())
		for ii, v := range values {
			values[ii] = (2*v - 1) * limit
		}
		return materialize(g, values, shape)
	}
}

// FanInNormalFn returns an initializer sampling from N(0, 1/fanIn), a
// Kaiming normal with unit (linear) gain. It is the "normal" scheme of
// [Scheme].
//
// initialSeed seeds the host sampler; NoSeed picks a seed from the clock.
func FanInNormalFn(initialSeed int64) context.VariableInitializer {
	h := newHostRng(initialSeed)
	return func(g *Graph, shape shapes.Shape) *Node {
		checkFloat("FanInNormal", shape)
		fanIn, _ := fanInOut(shape)
		stddev := math.Sqrt(1.0 / float64(max(fanIn, 1)))
		values := h.normFloat64s(shape.Size())
		for ii := range values {
			values[ii] *= stddev
		}
		return materialize(g, values, shape)
	}
}
