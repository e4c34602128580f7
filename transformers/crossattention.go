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

// Package transformers implements the attention blocks of the structure
// models: a multi-head CrossAttention that degenerates to self-attention when
// no key/value source is given, and an EncoderLayer in the style of the
// standard transformer encoder, with pre-norm and post-norm variants.
//
// Masks are boolean and true means the position is valid and can be attended.
// Masked-out attention logits are filled with the most negative finite value
// of their dtype, never -Inf, so a fully masked row softmaxes to a uniform
// distribution instead of NaN.
package transformers

import (
	"math"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	mllayers "github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"

	"github.com/foldmlx/foldmlx/initializers"
	"github.com/foldmlx/foldmlx/layers"
)

// CrossAttentionConfig is the configuration for a CrossAttention layer,
// returned by [NewCrossAttention]. Set the exported options and call Done to
// add the layer to the graph.
type CrossAttentionConfig struct {
	ctx   *context.Context
	query *Node

	keyValue    *Node
	numHeads    int
	headDim     int
	dropoutRate float64
	mask        *Node
	seed        int64
}

// NewCrossAttention returns the configuration of a multi-head attention layer
// ("Attention Is All You Need", https://arxiv.org/abs/1706.03762) where the
// keys and values may come from a source other than the queries, as used by
// latent diffusion conditioning.
//
// query must be shaped [batch, queryLen, queryDim]. Without WithKeyValue the
// layer attends query to itself. The default is 8 heads of dimension 64.
//
// The to_q/to_k/to_v projections are bias-free; the output projection back to
// queryDim has a bias. All use the default initialization scheme
// (initializers.SchemeDefault).
//
// The variables are created in the "cross_attention" scope under ctx.
func NewCrossAttention(ctx *context.Context, query *Node) *CrossAttentionConfig {
	return &CrossAttentionConfig{
		ctx:      ctx,
		query:    query,
		numHeads: 8,
		headDim:  64,
		seed:     initializers.NoSeed,
	}
}

// WithKeyValue sets the source of the keys and values, shaped [batch, kvLen,
// kvDim]. kvDim may differ from the query's last dimension. The default is
// the query itself (self-attention).
func (c *CrossAttentionConfig) WithKeyValue(keyValue *Node) *CrossAttentionConfig {
	c.keyValue = keyValue
	return c
}

// NumHeads sets the number of attention heads. The default is 8.
func (c *CrossAttentionConfig) NumHeads(numHeads int) *CrossAttentionConfig {
	c.numHeads = numHeads
	return c
}

// HeadDim sets the dimension of each head's query/key/value projections.
// The default is 64.
func (c *CrossAttentionConfig) HeadDim(headDim int) *CrossAttentionConfig {
	c.headDim = headDim
	return c
}

// Dropout sets the dropout rate applied to the output projection during
// training. The default is 0, meaning no dropout.
func (c *CrossAttentionConfig) Dropout(rate float64) *CrossAttentionConfig {
	c.dropoutRate = rate
	if c.dropoutRate >= 1 {
		Panicf("dropout rate %g >= 1 is undefined", rate)
	}
	return c
}

// Mask sets which positions can be attended: true means valid. It accepts a
// key-padding mask shaped [batch, kvLen], a per-query mask shaped [batch,
// queryLen, kvLen] or a per-head mask shaped [batch, numHeads, queryLen,
// kvLen]; the missing axes are broadcast.
func (c *CrossAttentionConfig) Mask(mask *Node) *CrossAttentionConfig {
	c.mask = mask
	return c
}

// InitializerSeed sets the seed of the projection initializers. Each
// projection offsets the seed so they draw distinct weights. The default is
// initializers.NoSeed, which seeds from the clock.
func (c *CrossAttentionConfig) InitializerSeed(seed int64) *CrossAttentionConfig {
	c.seed = seed
	return c
}

// Done adds the configured CrossAttention layer to the graph and returns its
// output, shaped like the query.
func (c *CrossAttentionConfig) Done() *Node {
	query := c.query
	ctx := c.ctx.In("cross_attention")
	if query.Rank() != 3 {
		Panicf("query for transformers.CrossAttention must be shaped [batch, queryLen, queryDim], got %s",
			query.Shape())
	}
	keyValue := c.keyValue
	if keyValue == nil {
		keyValue = query
	}
	if keyValue.Rank() != 3 {
		Panicf("key/value for transformers.CrossAttention must be shaped [batch, kvLen, kvDim], got %s",
			keyValue.Shape())
	}
	if keyValue.Shape().Dimensions[0] != query.Shape().Dimensions[0] {
		Panicf("query (shape %s) and key/value (shape %s) must have the same batch size",
			query.Shape(), keyValue.Shape())
	}
	if keyValue.DType() != query.DType() {
		Panicf("query (%s) and key/value (%s) must have the same dtype",
			query.DType(), keyValue.DType())
	}
	if c.numHeads < 1 {
		Panicf("transformers.CrossAttention requires NumHeads >= 1, got %d", c.numHeads)
	}
	if c.headDim < 1 {
		Panicf("transformers.CrossAttention requires HeadDim >= 1, got %d", c.headDim)
	}

	batchSize := query.Shape().Dimensions[0]
	queryLen := query.Shape().Dimensions[1]
	queryDim := query.Shape().Dimensions[2]
	kvLen := keyValue.Shape().Dimensions[1]
	innerDim := c.numHeads * c.headDim
	seed := func(offset int64) int64 {
		if c.seed == initializers.NoSeed {
			return c.seed
		}
		return c.seed + offset
	}

	q := layers.NewLinear(ctx.In("to_q"), query, innerDim).
		WithBias(false).InitializerSeed(seed(0)).Done()
	k := layers.NewLinear(ctx.In("to_k"), keyValue, innerDim).
		WithBias(false).InitializerSeed(seed(1)).Done()
	v := layers.NewLinear(ctx.In("to_v"), keyValue, innerDim).
		WithBias(false).InitializerSeed(seed(2)).Done()

	q = Reshape(q, batchSize, queryLen, c.numHeads, c.headDim)
	k = Reshape(k, batchSize, kvLen, c.numHeads, c.headDim)
	v = Reshape(v, batchSize, kvLen, c.numHeads, c.headDim)
	q = MulScalar(q, 1.0/math.Sqrt(float64(c.headDim)))

	// scores: [batch, numHeads, queryLen, kvLen].
	scores := Einsum("bihd,bjhd->bhij", q, k)
	if c.mask != nil {
		scores = maskScores(scores, c.mask)
	}
	weights := Softmax(scores)

	output := Einsum("bhij,bjhd->bihd", weights, v)
	output = Reshape(output, batchSize, queryLen, innerDim)
	output = layers.NewLinear(ctx.In("to_out"), output, queryDim).
		InitializerSeed(seed(3)).Done()
	return mllayers.DropoutStatic(ctx, output, c.dropoutRate)
}

// maskScores fills the masked-out attention logits with the most negative
// finite value of their dtype.
func maskScores(scores, mask *Node) *Node {
	if mask.DType() != dtypes.Bool {
		Panicf("attention mask must be boolean, got %s", mask.Shape())
	}
	switch mask.Rank() {
	case 2:
		// Key-padding mask [batch, kvLen]: broadcast over heads and queries.
		mask = InsertAxes(mask, 1, 1)
	case 3:
		// [batch, queryLen, kvLen]: broadcast over heads.
		mask = InsertAxes(mask, 1)
	case 4:
		// Already [batch, numHeads, queryLen, kvLen].
	default:
		Panicf("attention mask must be rank 2, 3 or 4, got %s", mask.Shape())
	}
	mask = BroadcastToDims(mask, scores.Shape().Dimensions...)
	return Where(mask, scores, lowestFinite(scores.Graph(), scores.DType()))
}

// lowestFinite returns the most negative finite value of dtype. Filling
// masked logits with -Inf would turn fully masked rows into NaN after the
// softmax.
func lowestFinite(g *Graph, dtype dtypes.DType) *Node {
	switch dtype {
	case dtypes.Float64:
		return Const(g, -math.MaxFloat64)
	case dtypes.Float32:
		return Const(g, float32(-math.MaxFloat32))
	case dtypes.Float16:
		return Const(g, float16.Fromfloat32(-65504))
	default:
		Panicf("attention masking requires a float dtype, got %s", dtype)
	}
	return nil
}
