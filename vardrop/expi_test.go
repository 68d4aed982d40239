package vardrop

import (
	"testing"

	_ "github.com/gomlx/gomlx/backends/default"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
)

func TestExpi(t *testing.T) {
	// Reference values from scipy.special.expi. The inputs cover both the
	// power-series branch (x > -8), including points just above the cutoff
	// where the series needs all its terms, and the asymptotic branch.
	graphtest.RunTestGraphFn(t, "Expi values", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{-0.5, -1.0, -2.0, -5.0, -7.0, -7.5, -7.9, -10.0, -20.0})
		inputs = []*Node{x}
		outputs = []*Node{Expi(x)}
		return
	}, []any{
		[]float64{
			-0.5597735947761608,
			-0.21938393439552026,
			-0.04890051070806112,
			-0.0011482955912753257,
			-1.1548173e-04,
			-6.5830700e-05,
			-4.2104000e-05,
			-4.156968929685325e-06,
			-9.835525412567219e-11,
		},
	}, 1e-7)
}

func TestExpiGradient(t *testing.T) {
	// d/dx Ei(x) = exp(x)/x, wired through a custom gradient so autodiff
	// never differentiates the series expansion.
	graphtest.RunTestGraphFn(t, "Expi gradient", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{-0.5, -2.0, -10.0})
		sum := ReduceAllSum(Expi(x))
		grad := Gradient(sum, x)[0]
		inputs = []*Node{x}
		outputs = []*Node{grad, Div(Exp(x), x)}
		return
	}, []any{
		[]float64{-1.2130613194252668, -0.06766764161830634, -4.539992976248485e-06},
		[]float64{-1.2130613194252668, -0.06766764161830634, -4.539992976248485e-06},
	}, 1e-10)
}

func TestExpiFloat32(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Expi in float32", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float32{-1.0})
		inputs = []*Node{x}
		outputs = []*Node{Expi(x)}
		return
	}, []any{
		[]float32{-0.21938394},
	}, 1e-5)
}
