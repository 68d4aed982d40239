// Package masked implements the pruning-aware, non-variational side of
// relevance pruning: a dense layer whose weights are elementwise gated by a
// frozen 0/1 mask, and the merge operation that produces its state from a
// weight snapshot plus relevance masks.
//
// The merge happens at deployment time, on materialized tensors, entirely
// outside a computation graph: it has no gradient semantics by
// construction. The masked layer itself is differentiable -- gradients flow
// to the surviving weights, the mask variable is not trainable.
package masked

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/initializers"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

const (
	// WeightsName and BiasesName match the dense/variational layer variable
	// names, so state keys line up across parameterizations.
	WeightsName = "weights"
	BiasesName  = "biases"

	// MaskName is the name of the 0/1 gate variable. It defaults to
	// all-ones (nothing pruned) until a merged record is applied.
	MaskName = "mask"
)

// DenseConfig is created with Dense and configured with its methods.
type DenseConfig struct {
	ctx       *context.Context
	input     *Node
	outputDim int
	useBias   bool
}

// Dense creates the configuration of a pruning-aware dense layer: output is
// x·(weights ⊙ mask) (+ biases). The mask variable is real-valued 0/1, not
// trainable, all-ones by default; it is populated by Record.Apply after a
// merge.
//
// The input must be rank-2, shaped [batchSize, inputDim]. Complex dtypes
// are supported, the mask stays real.
func Dense(ctx *context.Context, input *Node, outputDim int) *DenseConfig {
	if input.Rank() != 2 {
		Panicf("masked.Dense: input must be rank-2 [batchSize, inputDim], got shape %s", input.Shape())
	}
	if outputDim <= 0 {
		Panicf("masked.Dense: outputDim must be > 0, got %d", outputDim)
	}
	return &DenseConfig{ctx: ctx, input: input, outputDim: outputDim, useBias: true}
}

// UseBias sets whether to add a bias term. Default is true. The bias is
// never masked.
func (c *DenseConfig) UseBias(useBias bool) *DenseConfig {
	c.useBias = useBias
	return c
}

// Done builds the layer into the graph and returns its output.
func (c *DenseConfig) Done() *Node {
	ctx := c.ctx
	input := c.input
	g := input.Graph()
	dtype := input.DType()
	inputDim := input.Shape().Dim(-1)

	wVar := ctx.VariableWithShape(WeightsName, shapes.Make(dtype, inputDim, c.outputDim))
	maskVar := ctx.WithInitializer(initializers.One).
		VariableWithShape(MaskName, shapes.Make(maskDType(dtype), inputDim, c.outputDim)).
		SetTrainable(false)

	mask := maskVar.ValueGraph(g)
	if dtype.IsComplex() {
		mask = ConvertDType(mask, dtype)
	}
	output := Dot(input, Mul(wVar.ValueGraph(g), mask))
	if c.useBias {
		biasVar := ctx.VariableWithShape(BiasesName, shapes.Make(dtype, c.outputDim))
		output = Add(output, InsertAxes(biasVar.ValueGraph(g), 0))
	}
	return output
}

func maskDType(dtype dtypes.DType) dtypes.DType {
	switch dtype {
	case dtypes.Complex64:
		return dtypes.Float32
	case dtypes.Complex128:
		return dtypes.Float64
	}
	return dtype
}
