package vardrop

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/ml/train"
)

// Sigmoid-softplus approximation coefficients of the log-uniform KL term,
// fitted in the variational dropout literature. The complex set was fitted
// against the exact exponential-integral form; its constant k1 matches
// Euler's gamma to ~1e-3, which is what keeps the exact penalty
// non-negative.
const (
	klRealK1 = 0.63576
	klRealK2 = 1.87320
	klRealK3 = 1.48695

	klComplexK1 = 0.57811
	klComplexK2 = 1.46018
	klComplexK3 = 1.36562
)

// KLLogUniform is the variational dropout penalty for real-valued weights:
// k1·sigmoid(k2 + k3·logAlpha).
//
// Smooth, strictly positive, monotonically increasing in logAlpha and
// saturating at k1: near zero where the weight is confidently relevant
// (very negative log-alpha), near its maximum where it is noise-dominated.
// Same shape as logAlpha.
func KLLogUniform(logAlpha *Node) *Node {
	return klApprox(logAlpha, klRealK1, klRealK2, klRealK3)
}

// KLLogUniformComplex is the variational dropout penalty for
// circularly-symmetric complex weights, same functional form as
// KLLogUniform with coefficients fitted to the complex KL term.
//
// logAlpha is the real-valued statistic computed from the complex weights
// (see LogAlpha); the penalty itself is real.
func KLLogUniformComplex(logAlpha *Node) *Node {
	return klApprox(logAlpha, klComplexK1, klComplexK2, klComplexK3)
}

func klApprox(logAlpha *Node, k1, k2, k3 float64) *Node {
	return MulScalar(Sigmoid(AddScalar(MulScalar(logAlpha, k3), k2)), k1)
}

// KLLogUniformComplexExact is the exact form of the complex log-uniform
// penalty:
//
//	softplus(logAlpha) + Ei(-exp(-logAlpha)) + k1 - γ
//
// where Ei is the exponential integral and γ Euler's gamma. It shares the
// limits of the approximation -- 0 as logAlpha → -∞, k1 as logAlpha → +∞ --
// and KLLogUniformComplex is its fitted surrogate. Costs an Expi evaluation
// per element; prefer KLLogUniformComplexDeferred when only the gradient
// needs to be exact.
func KLLogUniformComplexExact(logAlpha *Node) *Node {
	ei := Expi(Neg(Exp(Neg(logAlpha))))
	return AddScalar(Add(Softplus(logAlpha), ei), klComplexK1-eulerGamma)
}

// KLLogUniformComplexDeferred decouples the forward value of the exact
// complex penalty from its gradient: the forward value is the cheap
// sigmoid approximation (KLLogUniformComplex), while the gradient is the
// exact derivative
//
//	sigmoid(logAlpha) - exp(-exp(-logAlpha))
//
// of KLLogUniformComplexExact, attached via a custom-gradient node. Use it
// when the penalty's numeric value is only reported, never compared, and
// training dynamics should follow the exact KL term.
func KLLogUniformComplexDeferred(logAlpha *Node) *Node {
	forward := KLLogUniformComplex(StopGradient(logAlpha))
	carrier := IdentityWithCustomGradient(logAlpha, func(x, v *Node) *Node {
		grad := Sub(Sigmoid(x), Exp(Neg(Exp(Neg(x)))))
		return Mul(v, grad)
	})
	return Add(forward, Sub(carrier, StopGradient(carrier)))
}

// KLGaussian is the ARD penalty, the closed-form KL divergence between the
// factorized Gaussian posterior and a Gaussian prior with learned precision:
//
//	0.5·log(1 + 1/alpha) = 0.5·softplus(-logAlpha)
//
// Non-negative everywhere, no approximation involved.
func KLGaussian(logAlpha *Node) *Node {
	return MulScalar(Softplus(Neg(logAlpha)), 0.5)
}

// Penalty computes the per-element penalty of the given prior family.
// complexWeights selects the complex log-uniform penalty (deferred form:
// cheap forward, exact gradient); it is ignored for the Gaussian family,
// whose closed form holds in both cases.
func Penalty(prior Prior, logAlpha *Node, complexWeights bool) *Node {
	switch prior {
	case PriorLogUniform:
		if complexWeights {
			return KLLogUniformComplexDeferred(logAlpha)
		}
		return KLLogUniform(logAlpha)
	case PriorGaussian:
		return KLGaussian(logAlpha)
	default:
		Panicf("vardrop.Penalty: invalid prior %d, options are %v", prior, PriorValues())
	}
	return nil
}

// Regularizer returns a gomlx regularizer that adds amount · sum(penalty)
// of the given prior family to the training loss, for every weights
// variable that has a log_sigma2 sibling in its scope. Weights without a
// sibling are skipped: they are not variational.
//
// Returns nil if amount is 0, like the regularizers package constructors.
func Regularizer(prior Prior, amount float64) regularizers.Regularizer {
	if amount == 0 {
		return nil
	}
	return func(ctx *context.Context, g *Graph, weights ...*context.Variable) {
		if len(weights) == 0 {
			Panicf("no weights given to vardrop.Regularizer")
		}
		var loss *Node
		for _, wVar := range weights {
			lsVar := ctx.InspectVariable(wVar.Scope(), DispersionName)
			if lsVar == nil {
				continue
			}
			w := wVar.ValueGraph(g)
			logAlpha := LogAlpha(w, lsVar.ValueGraph(g))
			p := ReduceAllSum(Penalty(prior, logAlpha, w.DType().IsComplex()))
			if loss == nil {
				loss = p
			} else {
				loss = Add(loss, p)
			}
		}
		if loss == nil {
			return
		}
		train.AddLoss(ctx, MulScalar(loss, amount))
	}
}
