package vardrop

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
)

const eulerGamma = 0.57721566490153286

// expiSeriesCutoff splits the two evaluation regimes of Expi: power series
// above it (towards 0), asymptotic expansion below. At the cutoff both sides
// agree to ~1e-7 absolute in float64, the truncation error of the asymptotic
// expansion there.
const expiSeriesCutoff = -8.0

// expiSeriesTerms is enough for the power series to converge to float64
// roundoff at the cutoff: the k=40 term at x=-8 is already below 1e-13.
const expiSeriesTerms = 40

// Expi computes the exponential integral Ei(x) = ∫_{-∞}^x e^t/t dt for
// strictly negative x, elementwise.
//
// The forward value combines the power series Ei(x) = γ + log|x| + Σ xᵏ/(k·k!)
// near zero with the asymptotic expansion eˣ/x · Σ k!/xᵏ for large |x|.
// The gradient does not differentiate through either expansion: it is the
// exact derivative eˣ/x, attached with a custom-gradient node.
//
// Positive or zero arguments are outside the supported domain and yield
// unspecified values.
func Expi(x *Node) *Node {
	forward := expiValue(StopGradient(x))
	carrier := IdentityWithCustomGradient(x, func(x, v *Node) *Node {
		return Mul(v, Div(Exp(x), x))
	})
	// Forward contribution of carrier cancels out; only its gradient remains.
	return Add(forward, Sub(carrier, StopGradient(carrier)))
}

func expiValue(x *Node) *Node {
	g := x.Graph()
	dtype := x.DType()
	if dtype.IsComplex() {
		Panicf("vardrop.Expi: complex dtype %s not supported, arguments must be negative reals", dtype)
	}

	// Power series, accurate for small |x|.
	term := x // xᵏ/k!, starting at k=1.
	series := x
	for k := 2; k <= expiSeriesTerms; k++ {
		term = DivScalar(Mul(term, x), float64(k))
		series = Add(series, DivScalar(term, float64(k)))
	}
	small := AddScalar(Add(series, Log(Abs(x))), eulerGamma)

	// Asymptotic expansion eˣ/x (1 + 1/x + 2/x² + 6/x³ + 24/x⁴ + 120/x⁵),
	// accurate for large |x|. Evaluated in Horner form.
	inv := Div(ScalarOne(g, dtype), x)
	poly := AddScalar(MulScalar(inv, 120), 24)
	poly = AddScalar(Mul(poly, inv), 6)
	poly = AddScalar(Mul(poly, inv), 2)
	poly = AddScalar(Mul(poly, inv), 1)
	poly = AddScalar(Mul(poly, inv), 1)
	large := Mul(Div(Exp(x), x), poly)

	return Where(GreaterThan(x, Scalar(g, dtype, expiSeriesCutoff)), small, large)
}
