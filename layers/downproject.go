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
	"github.com/gomlx/gomlx/types/shapes"

	"github.com/foldmlx/foldmlx/initializers"
)

// BasisDownProjectionConfig is the configuration for a basis down-projection,
// returned by [NewBasisDownProjection]. Set the exported options and call
// Done to add the layer to the graph.
type BasisDownProjectionConfig struct {
	ctx            *context.Context
	basis          *Node
	sphericalBasis *Node
	intermDim      int

	seed int64
}

// NewBasisDownProjection returns the configuration of the down-projection
// used by efficient interaction blocks in the GemNet style ("GemNet:
// Universal Directional Graph Neural Networks for Molecules",
// https://arxiv.org/abs/2106.08903): it projects the radial basis from
// numRadial to a smaller intermDim with He-orthogonal weights, and reorders
// both bases so the pairwise contraction of the interaction block becomes a
// single batched matrix multiplication.
//
// basis is the enveloped radial basis shaped [numSpherical, numEdges,
// numRadial] and sphericalBasis the spherical one shaped [numEdges, kMax,
// numSpherical], with kMax the maximum number of neighbors per edge.
//
// Done returns the projected radial basis shaped [numEdges, intermDim,
// numSpherical] and the transposed spherical basis shaped [numEdges,
// numSpherical, kMax].
//
// The weights are created in the "basis_down_projection" scope under ctx.
func NewBasisDownProjection(ctx *context.Context, basis, sphericalBasis *Node, intermDim int) *BasisDownProjectionConfig {
	return &BasisDownProjectionConfig{
		ctx:            ctx,
		basis:          basis,
		sphericalBasis: sphericalBasis,
		intermDim:      intermDim,
		seed:           initializers.NoSeed,
	}
}

// InitializerSeed sets the seed of the He-orthogonal weight sampler.
// The default is initializers.NoSeed, which seeds from the clock.
func (c *BasisDownProjectionConfig) InitializerSeed(seed int64) *BasisDownProjectionConfig {
	c.seed = seed
	return c
}

// Done adds the configured down-projection to the graph and returns the
// projected radial basis and the transposed spherical basis.
func (c *BasisDownProjectionConfig) Done() (projected, spherical *Node) {
	basis, sphericalBasis := c.basis, c.sphericalBasis
	g := basis.Graph()
	ctx := c.ctx.In("basis_down_projection")
	if c.intermDim <= 0 {
		Panicf("layers.BasisDownProjection requires intermDim > 0, got %d", c.intermDim)
	}
	if basis.Rank() != 3 {
		Panicf("basis for layers.BasisDownProjection must be shaped [numSpherical, numEdges, numRadial], got %s",
			basis.Shape())
	}
	if sphericalBasis.Rank() != 3 {
		Panicf("sphericalBasis for layers.BasisDownProjection must be shaped [numEdges, kMax, numSpherical], got %s",
			sphericalBasis.Shape())
	}
	numSpherical := basis.Shape().Dimensions[0]
	if sphericalBasis.Shape().Dimensions[2] != numSpherical {
		Panicf("basis (shape %s) and sphericalBasis (shape %s) disagree on numSpherical",
			basis.Shape(), sphericalBasis.Shape())
	}
	if basis.DType() != sphericalBasis.DType() {
		Panicf("basis (%s) and sphericalBasis (%s) must have the same dtype",
			basis.DType(), sphericalBasis.DType())
	}

	dtype := basis.DType()
	numRadial := basis.Shape().Dimensions[2]
	weightsVar := ctx.WithInitializer(initializers.HeOrthogonalFn(c.seed)).
		VariableWithShape("weights", shapes.Make(dtype, numSpherical, numRadial, c.intermDim))

	// (S, E, R) x (S, R, I) -> (E, I, S).
	projected = Einsum("ser,sri->eis", basis, weightsVar.ValueGraph(g))
	// (E, Kmax, S) -> (E, S, Kmax).
	spherical = Transpose(sphericalBasis, 1, 2)
	return
}
