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

package transformers

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	mllayers "github.com/gomlx/gomlx/ml/layers"

	"github.com/foldmlx/foldmlx/initializers"
	"github.com/foldmlx/foldmlx/layers"
	"github.com/foldmlx/foldmlx/layers/activations"
)

// EncoderLayerConfig is the configuration for an EncoderLayer, returned by
// [NewEncoderLayer]. Set the exported options and call Done to add the layer
// to the graph.
type EncoderLayerConfig struct {
	ctx *context.Context
	x   *Node

	numHeads       int
	hiddenDim      int
	activation     activations.Type
	dropoutRate    float64
	normFirst      bool
	epsilon        float64
	attnMask       *Node
	keyPaddingMask *Node
	seed           int64
}

// NewEncoderLayer returns the configuration of one transformer encoder layer:
// multi-head self-attention (the [NewCrossAttention] layer in self mode)
// followed by a two-layer feed-forward block, each wrapped with a residual
// connection and layer normalization.
//
// x must be shaped [batch, seqLen, modelDim] and modelDim must be divisible
// by the number of heads. The defaults follow the standard encoder: 8 heads,
// hidden dimension 2048, relu, dropout 0.1, post-norm, epsilon 1e-5.
//
// The variables are created in the "encoder_layer" scope under ctx.
func NewEncoderLayer(ctx *context.Context, x *Node) *EncoderLayerConfig {
	return &EncoderLayerConfig{
		ctx:         ctx,
		x:           x,
		numHeads:    8,
		hiddenDim:   2048,
		activation:  activations.TypeRelu,
		dropoutRate: 0.1,
		epsilon:     1e-5,
		seed:        initializers.NoSeed,
	}
}

// NumHeads sets the number of self-attention heads. The default is 8.
func (c *EncoderLayerConfig) NumHeads(numHeads int) *EncoderLayerConfig {
	c.numHeads = numHeads
	return c
}

// HiddenDim sets the width of the feed-forward block. The default is 2048.
func (c *EncoderLayerConfig) HiddenDim(hiddenDim int) *EncoderLayerConfig {
	c.hiddenDim = hiddenDim
	return c
}

// Activation sets the feed-forward activation. The default is
// activations.TypeRelu; any registered activation works, and
// [activations.Type.FusedKind] tells whether a backend can fuse it.
func (c *EncoderLayerConfig) Activation(activation activations.Type) *EncoderLayerConfig {
	c.activation = activation
	return c
}

// Dropout sets the dropout rate of both sub-blocks during training.
// The default is 0.1.
func (c *EncoderLayerConfig) Dropout(rate float64) *EncoderLayerConfig {
	c.dropoutRate = rate
	if c.dropoutRate >= 1 {
		Panicf("dropout rate %g >= 1 is undefined", rate)
	}
	return c
}

// NormFirst selects the pre-norm variant: each sub-block input is normalized
// and the raw sub-block output is added to the residual. The default is
// false, the post-norm variant, which normalizes after the residual add.
func (c *EncoderLayerConfig) NormFirst(normFirst bool) *EncoderLayerConfig {
	c.normFirst = normFirst
	return c
}

// LayerNormEpsilon sets the epsilon of both layer normalizations.
// The default is 1e-5.
func (c *EncoderLayerConfig) LayerNormEpsilon(epsilon float64) *EncoderLayerConfig {
	c.epsilon = epsilon
	return c
}

// Mask sets the attention mask, a boolean shaped [seqLen, seqLen] shared by
// the whole batch, true where the query position (first axis) can attend the
// key position (second axis).
func (c *EncoderLayerConfig) Mask(attnMask *Node) *EncoderLayerConfig {
	c.attnMask = attnMask
	return c
}

// KeyPaddingMask sets the per-position validity mask, a boolean shaped
// [batch, seqLen], true where the position holds real content. Padded
// positions are excluded from attention.
func (c *EncoderLayerConfig) KeyPaddingMask(mask *Node) *EncoderLayerConfig {
	c.keyPaddingMask = mask
	return c
}

// InitializerSeed sets the seed of the weight initializers, offset per
// sub-layer. The default is initializers.NoSeed, which seeds from the clock.
func (c *EncoderLayerConfig) InitializerSeed(seed int64) *EncoderLayerConfig {
	c.seed = seed
	return c
}

// Done adds the configured EncoderLayer to the graph and returns its output,
// shaped like x.
func (c *EncoderLayerConfig) Done() *Node {
	x := c.x
	ctx := c.ctx.In("encoder_layer")
	if x.Rank() != 3 {
		Panicf("input for transformers.EncoderLayer must be shaped [batch, seqLen, modelDim], got %s",
			x.Shape())
	}
	batchSize := x.Shape().Dimensions[0]
	seqLen := x.Shape().Dimensions[1]
	modelDim := x.Shape().Dimensions[2]
	if c.numHeads < 1 {
		Panicf("transformers.EncoderLayer requires NumHeads >= 1, got %d", c.numHeads)
	}
	if modelDim%c.numHeads != 0 {
		Panicf("transformers.EncoderLayer requires modelDim divisible by NumHeads, got modelDim=%d, NumHeads=%d",
			modelDim, c.numHeads)
	}
	if c.hiddenDim < 1 {
		Panicf("transformers.EncoderLayer requires HiddenDim >= 1, got %d", c.hiddenDim)
	}
	mask := c.buildMask(batchSize, seqLen)
	seed := func(offset int64) int64 {
		if c.seed == initializers.NoSeed {
			return c.seed
		}
		return c.seed + offset
	}

	selfAttention := func(x *Node) *Node {
		attention := NewCrossAttention(ctx.In("mha"), x).
			NumHeads(c.numHeads).
			HeadDim(modelDim / c.numHeads).
			Dropout(c.dropoutRate).
			InitializerSeed(seed(0))
		if mask != nil {
			attention.Mask(mask)
		}
		return mllayers.DropoutStatic(ctx, attention.Done(), c.dropoutRate)
	}
	feedForward := func(x *Node) *Node {
		hidden := layers.NewLinear(ctx.In("ffn1"), x, c.hiddenDim).
			InitializerSeed(seed(8)).Done()
		hidden = activations.Apply(c.activation, hidden)
		hidden = mllayers.DropoutStatic(ctx, hidden, c.dropoutRate)
		hidden = layers.NewLinear(ctx.In("ffn2"), hidden, modelDim).
			InitializerSeed(seed(9)).Done()
		return mllayers.DropoutStatic(ctx, hidden, c.dropoutRate)
	}
	norm := func(scope string, x *Node) *Node {
		return mllayers.LayerNormalization(ctx.In(scope), x, -1).
			Epsilon(c.epsilon).
			Done()
	}

	if c.normFirst {
		x = Add(x, selfAttention(norm("norm1", x)))
		x = Add(x, feedForward(norm("norm2", x)))
	} else {
		x = norm("norm1", Add(x, selfAttention(x)))
		x = norm("norm2", Add(x, feedForward(x)))
	}
	return x
}

// buildMask combines the attention mask and the key-padding mask into one
// [batch, seqLen, seqLen] boolean mask, or returns nil when neither is set.
func (c *EncoderLayerConfig) buildMask(batchSize, seqLen int) *Node {
	var mask *Node
	if c.attnMask != nil {
		shape := c.attnMask.Shape()
		if shape.Rank() != 2 || shape.Dimensions[0] != seqLen || shape.Dimensions[1] != seqLen {
			Panicf("attention mask for transformers.EncoderLayer must be shaped [seqLen=%d, seqLen=%d], got %s",
				seqLen, seqLen, shape)
		}
		mask = BroadcastToDims(InsertAxes(c.attnMask, 0), batchSize, seqLen, seqLen)
	}
	if c.keyPaddingMask != nil {
		shape := c.keyPaddingMask.Shape()
		if shape.Rank() != 2 || shape.Dimensions[0] != batchSize || shape.Dimensions[1] != seqLen {
			Panicf("key-padding mask for transformers.EncoderLayer must be shaped [batch=%d, seqLen=%d], got %s",
				batchSize, seqLen, shape)
		}
		padding := BroadcastToDims(InsertAxes(c.keyPaddingMask, 1), batchSize, seqLen, seqLen)
		if mask == nil {
			mask = padding
		} else {
			mask = LogicalAnd(mask, padding)
		}
	}
	return mask
}
