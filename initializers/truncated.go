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

package initializers

import (
	"math"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/shapes"
	"gonum.org/v1/gonum/stat/distuv"
)

// unitTruncatedStd is the standard deviation of a unit normal truncated to
// [-2, +2] standard deviations. TestUnitTruncatedStd cross-checks the value
// against gonum's distuv.
const unitTruncatedStd = 0.87962566103423978

// TruncatedNormalFn returns an initializer sampling a normal distribution
// truncated to 2 standard deviations on both sides, with the overall
// standard deviation corrected for the truncation so it comes out as exactly
// sqrt(scale/fan): dividing by the standard deviation of the unit truncated
// normal first, as jax and the AlphaFold-lineage models do. Every sample is
// strictly inside the truncation bounds -- sampling goes through the inverse
// CDF, there is no rejection loop.
//
// scale must be > 0 and is divided by the fan measure selected by mode
// (clamped to >= 1, so biases and scalars remain well-defined).
//
// initialSeed seeds the host sampler; NoSeed picks a seed from the clock.
func TruncatedNormalFn(initialSeed int64, scale float64, mode FanMode) context.VariableInitializer {
	if scale <= 0 {
		Panicf("TruncatedNormal requires scale > 0, got %g", scale)
	}
	h := newHostRng(initialSeed)
	return func(g *Graph, shape shapes.Shape) *Node {
		checkFloat("TruncatedNormal", shape)
		fan := math.Max(1, mode.fan(shape))
		stddev := math.Sqrt(scale/fan) / unitTruncatedStd
		low := distuv.UnitNormal.CDF(-2)
		span := distuv.UnitNormal.CDF(2) - low
		values := h.float64s(shape.Size())
		for ii, u := range values {
			values[ii] = distuv.UnitNormal.Quantile(low+u*span) * stddev
		}
		return materialize(g, values, shape)
	}
}

// LeCunNormalFn is the truncated normal with variance 1/fanIn, the usual
// default for linear layers followed by self-gated activations. It is the
// "default" scheme of [Scheme].
func LeCunNormalFn(initialSeed int64) context.VariableInitializer {
	return TruncatedNormalFn(initialSeed, 1.0, FanIn)
}

// HeNormalFn is the truncated normal with variance 2/fanIn, for layers
// followed by relu. It is the "relu" scheme of [Scheme].
func HeNormalFn(initialSeed int64) context.VariableInitializer {
	return TruncatedNormalFn(initialSeed, 2.0, FanIn)
}
