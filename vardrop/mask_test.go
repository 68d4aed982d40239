package vardrop

import (
	"testing"

	_ "github.com/gomlx/gomlx/backends/default"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/ctxtest"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/require"
)

func TestMaskHard(t *testing.T) {
	graphtest.RunTestGraphFn(t, "hard mask is a strict threshold", func(g *Graph) (inputs, outputs []*Node) {
		la := Const(g, []float64{-11.4, 0.999, 1.0, 1.001, 9.2})
		inputs = []*Node{la}
		outputs = []*Node{Mask(la, 1.0, true)}
		return
	}, []any{
		// Kept iff log_alpha < threshold; the boundary itself is dropped.
		[]float64{1, 1, 0, 0, 0},
	}, 0)
}

func TestThreshold(t *testing.T) {
	ctx := context.New()
	require.Equal(t, DefaultThreshold, Threshold(ctx))

	ctx.SetParam(ParamThreshold, 0.25)
	require.Equal(t, 0.25, Threshold(ctx))
	// Scoped contexts inherit the hyperparameter.
	require.Equal(t, 0.25, Threshold(ctx.In("model")))
}

func TestMaskThresholdMonotonic(t *testing.T) {
	graphtest.RunTestGraphFn(t, "larger threshold keeps a superset", func(g *Graph) (inputs, outputs []*Node) {
		la := Const(g, []float64{-5, -1, 0, 2, 8})
		loose := Mask(la, 3.0, true)
		tight := Mask(la, -2.0, true)
		inputs = []*Node{la}
		// Everything the tight mask keeps, the loose mask keeps too.
		outputs = []*Node{ReduceAllSum(Mul(tight, Sub(ScalarOne(g, la.DType()), loose)))}
		return
	}, []any{0.0}, 0)
}

func TestMaskSoft(t *testing.T) {
	graphtest.RunTestGraphFn(t, "soft mask shape and midpoint", func(g *Graph) (inputs, outputs []*Node) {
		la := Const(g, []float64{-10, 1.0, 10})
		inputs = []*Node{la}
		outputs = []*Node{MaskSoft(la, 1.0, DefaultSharpness)}
		return
	}, []any{
		// Saturated at both ends, exactly 1/2 at the threshold.
		[]float64{1, 0.5, 0},
	}, 1e-6)
}

func TestMaskSoftConvergesToHard(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	diff := ExecOnce(backend, func(g *Graph) *Node {
		la := Const(g, []float64{-3, -0.5, 0.5, 3})
		soft := MaskSoft(la, 0.0, 1e3)
		return ReduceAllMax(Abs(Sub(soft, Mask(la, 0.0, true))))
	})
	require.Less(t, tensors.CopyFlatData[float64](diff)[0], 1e-6)
}

func TestMasks(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "iterates pairs with their masks", func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
		h := ctx.In("hidden")
		h.VariableWithValue(WeightsName, []float64{2.0, 0.01})
		h.VariableWithValue(DispersionName, []float64{-10.0, 0.0})

		var names []string
		for name, mask := range Masks(ctx, g, 1.0, true) {
			names = append(names, name)
			outputs = append(outputs, mask)
		}
		require.Equal(t, []string{"/hidden/weights"}, names)
		return
	}, []any{
		[]float64{1, 0},
	}, 0)
}

func TestComputeMasks(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	h := ctx.In("hidden")
	h.VariableWithValue(WeightsName, []float64{2.0, 0.01})
	h.VariableWithValue(DispersionName, []float64{-10.0, 0.0})
	ctx.In("plain").VariableWithValue(WeightsName, []float64{1.0})

	masks := ComputeMasks(backend, ctx, 1.0)
	require.Len(t, masks, 1)
	require.Contains(t, masks, "/hidden/weights")
	require.Equal(t, []float64{1, 0}, tensors.CopyFlatData[float64](masks["/hidden/weights"]))
}

func TestComputeMasksEmpty(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	require.Empty(t, ComputeMasks(backend, context.New(), 1.0))
}
