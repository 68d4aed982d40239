package vardrop

import (
	"math"
	"testing"

	_ "github.com/gomlx/gomlx/backends/default"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/stretchr/testify/require"
)

func TestLogAlpha(t *testing.T) {
	graphtest.RunTestGraphFn(t, "LogAlpha basic", func(g *Graph) (inputs, outputs []*Node) {
		w := Const(g, []float64{2.0, 0.01})
		logSigma2 := Const(g, []float64{-10.0, 0.0})
		inputs = []*Node{w, logSigma2}
		outputs = []*Node{LogAlpha(w, logSigma2)}
		return
	}, []any{
		[]float64{-10 - math.Log(4.0), -math.Log(1e-4)},
	}, 1e-6)
}

func TestLogAlphaClamping(t *testing.T) {
	graphtest.RunTestGraphFn(t, "LogAlpha clamps at both boundaries", func(g *Graph) (inputs, outputs []*Node) {
		// Zero mean diverges without the epsilon guard; the clamp keeps it at
		// the upper boundary. Huge means saturate at the lower boundary.
		w := Const(g, []float64{0.0, 1e3})
		logSigma2 := Const(g, []float64{0.0, -10.0})
		inputs = []*Node{w, logSigma2}
		outputs = []*Node{LogAlpha(w, logSigma2)}
		return
	}, []any{
		[]float64{LogAlphaMax, LogAlphaMin},
	}, 0)
}

func TestLogAlphaComplex(t *testing.T) {
	graphtest.RunTestGraphFn(t, "LogAlpha on complex weights", func(g *Graph) (inputs, outputs []*Node) {
		w := Const(g, []complex128{3 + 4i})
		logSigma2 := Const(g, []float64{-10.0})
		inputs = []*Node{logSigma2}
		outputs = []*Node{LogAlpha(w, logSigma2)}
		return
	}, []any{
		[]float64{-10 - math.Log(25.0)}, // |3+4i|² = 25, result is real-valued.
	}, 1e-6)
}

func TestLogAlphaShapeMismatch(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	require.Panics(t, func() {
		ExecOnce(backend, func(g *Graph) *Node {
			w := Const(g, []float64{1, 2, 3})
			logSigma2 := Const(g, []float64{0, 0})
			return LogAlpha(w, logSigma2)
		})
	})
}
