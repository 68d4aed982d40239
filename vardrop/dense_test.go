package vardrop

import (
	"math"
	"testing"

	"github.com/cheriylan/relevance/masked"
	_ "github.com/gomlx/gomlx/backends/default"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/ctxtest"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestDenseInference(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "variational inference uses the mean path", func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
		layerCtx := ctx.In("dense0")
		layerCtx.VariableWithValue(WeightsName, [][]float64{{0.5}, {-1.0}})
		layerCtx.VariableWithValue(DispersionName, [][]float64{{0.0}, {0.0}})
		layerCtx.VariableWithValue(BiasesName, []float64{0.25})

		x := Const(g, [][]float64{{1, 2}, {3, 4}})
		output := Dense(layerCtx.Checked(false), x, 1).Done()

		loss := train.GetLosses(ctx, g)
		require.NotNil(t, loss, "variational dense must register its penalty as a loss")
		outputs = []*Node{output, loss}
		return
	}, []any{
		[][]float64{{-1.25}, {-2.25}},
		// log_alpha of the two weights is -log(0.25)=log(4) and -log(1)=0.
		sigmoidFit(math.Log(4)) + sigmoidFit(0),
	}, 1e-5)
}

func TestDenseTrainingAddsNoise(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.NewExec(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		ctx.SetTraining(g, true)
		x := Const(g, [][]float64{{1, 2}, {3, 4}})
		layerCtx := ctx.In("dense0").Checked(false)
		out1 := Dense(layerCtx, x, 3).PenaltyWeight(0).Done()
		out2 := Dense(layerCtx, x, 3).PenaltyWeight(0).Done()
		require.Equal(t, []int{2, 3}, out1.Shape().Dimensions)
		return ReduceAllSum(Abs(Sub(out1, out2)))
	})
	defer exec.Finalize()

	// Same variables, independent noise draws: the two samples disagree.
	diff := tensors.CopyFlatData[float64](exec.Call()[0])[0]
	require.Greater(t, diff, 0.0)
}

func TestDensePlainVariant(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "plain variant is a deterministic matmul", func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
		layerCtx := ctx.In("dense0")
		layerCtx.VariableWithValue(WeightsName, [][]float64{{2.0}, {3.0}})
		layerCtx.VariableWithValue(BiasesName, []float64{1.0})

		x := Const(g, [][]float64{{1, 1}})
		output := Dense(layerCtx.Checked(false), x, 1).Variant(VariantDense).Done()

		require.Nil(t, ctx.InspectVariable(layerCtx.Scope(), DispersionName),
			"plain variant has no dispersion")
		require.False(t, lossRegistered(ctx, g))
		outputs = []*Node{output}
		return
	}, []any{
		[][]float64{{6.0}},
	}, 0)
}

func TestDenseMaskedVariant(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "masked variant delegates to masked.Dense", func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
		layerCtx := ctx.In("dense0")
		layerCtx.VariableWithValue(masked.WeightsName, [][]float64{{2.0}, {3.0}})
		layerCtx.VariableWithValue(masked.MaskName, [][]float64{{1.0}, {0.0}})
		layerCtx.VariableWithValue(masked.BiasesName, []float64{0.0})

		x := Const(g, [][]float64{{1, 1}})
		outputs = []*Node{Dense(layerCtx.Checked(false), x, 1).Variant(VariantMasked).Done()}
		return
	}, []any{
		// The second input weight is masked out.
		[][]float64{{2.0}},
	}, 0)
}

func TestDenseComplex(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "complex weights, real dispersion", func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
		layerCtx := ctx.In("dense0")
		layerCtx.VariableWithValue(WeightsName, [][]complex128{{1 + 1i}, {2i}})
		layerCtx.VariableWithValue(DispersionName, [][]float64{{-10.0}, {-10.0}})

		x := Const(g, [][]complex128{{1, 1i}})
		output := Dense(layerCtx.Checked(false), x, 1).UseBias(false).Done()

		lsVar := ctx.InspectVariable(layerCtx.Scope(), DispersionName)
		require.Equal(t, dtypes.Float64, lsVar.Shape().DType)
		outputs = []*Node{output}
		return
	}, []any{
		[][]complex128{{1 + 1i + 1i*2i}}, // = -1 + 1i
	}, 1e-12)
}

func TestDenseHyperparameters(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "variant selected via context params", func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
		ctx.SetParam(ParamVariant, VariantDense.String())
		layerCtx := ctx.In("dense0")
		layerCtx.VariableWithValue(WeightsName, [][]float64{{1.0}})
		layerCtx.VariableWithValue(BiasesName, []float64{0.0})

		x := Const(g, [][]float64{{5}})
		outputs = []*Node{Dense(layerCtx.Checked(false), x, 1).Done()}
		require.False(t, lossRegistered(ctx, g))
		return
	}, []any{
		[][]float64{{5.0}},
	}, 0)
}

func TestDenseValidation(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	require.Panics(t, func() {
		ExecOnce(backend, func(g *Graph) *Node {
			return Dense(context.New(), Const(g, []float64{1, 2}), 1).Done()
		})
	}, "rank-1 input")
	require.Panics(t, func() {
		ExecOnce(backend, func(g *Graph) *Node {
			return Dense(context.New(), Const(g, [][]float64{{1, 2}}), 0).Done()
		})
	}, "non-positive outputDim")
	require.Panics(t, func() {
		ctx := context.New()
		ctx.SetParam(ParamVariant, "bogus")
		ExecOnce(backend, func(g *Graph) *Node {
			return Dense(ctx, Const(g, [][]float64{{1}}), 1).Done()
		})
	}, "invalid variant name")
}
