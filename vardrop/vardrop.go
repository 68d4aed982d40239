// Package vardrop implements variational dropout and automatic relevance
// determination (ARD) for gomlx models: dense layers whose weights carry a
// learned log-variance, the log-alpha relevance statistic derived from it,
// KL-style penalties added to the training loss, and threshold-based
// relevance masks used for pruning after training.
//
// A variational layer owns two variables in its scope: "weights" (the mean,
// possibly complex-valued) and "log_sigma2" (the log-dispersion, always
// real-valued, initialized to DispersionInit). Any scope holding such a pair
// is "eligible": Penalties, Masks and TotalPenalty find it by walking the
// context variables, so penalties and masks aggregate over arbitrarily
// nested models without extra bookkeeping.
//
// Typical use:
//
//	func ModelGraph(ctx *context.Context, inputs []*Node) []*Node {
//		x := inputs[0]
//		x = Tanh(vardrop.Dense(ctx.In("hidden"), x, 128).Done())
//		logits := vardrop.Dense(ctx.In("output"), x, numClasses).Done()
//		return []*Node{logits}
//	}
//
// The per-layer penalties are registered with train.AddLoss, so any gomlx
// trainer picks them up automatically. After training, compute hard masks
// with ComputeMasks and merge them into a pruned state with masked.Merge.
package vardrop

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

const (
	// ParamVariant context hyperparameter selects the layer variant built by
	// Dense: "dense", "variational" or "masked".
	// The default is "variational".
	ParamVariant = "vardrop_variant"

	// ParamPrior context hyperparameter selects the prior family used for the
	// penalty: "log_uniform" (variational dropout) or "gaussian" (ARD).
	// The default is "log_uniform".
	ParamPrior = "vardrop_prior"

	// ParamPenaltyWeight context hyperparameter scales the per-layer penalty
	// added to the loss. Set to 0 to disable the penalty term.
	// The value should be a float64. The default is 1.0.
	ParamPenaltyWeight = "vardrop_penalty_weight"

	// ParamThreshold context hyperparameter is the default log-alpha threshold
	// for relevance masks, read back with Threshold: an element is kept iff
	// log_alpha < threshold.
	// The value should be a float64. The default is DefaultThreshold.
	ParamThreshold = "vardrop_threshold"
)

const (
	// WeightsName is the name of the mean variable of a variational pair.
	// It matches the name used by gomlx dense layers, so dense and
	// variational parameterizations of the same model share state keys.
	WeightsName = "weights"

	// BiasesName is the name of the (mean-only) bias variable.
	BiasesName = "biases"

	// DispersionName is the name of the log-variance variable of a
	// variational pair. Its presence next to a WeightsName variable is what
	// makes a scope eligible for penalties and masks.
	DispersionName = "log_sigma2"

	// DispersionInit is the value log_sigma2 variables are initialized to.
	// Strongly negative: near-zero uncertainty, maximal initial relevance.
	DispersionInit = -10.0
)

//go:generate go tool enumer -type=Variant -trimprefix=Variant -transform=snake -values -text -json -yaml -output=variant_enumer.go vardrop.go
//go:generate go tool enumer -type=Prior -trimprefix=Prior -transform=snake -values -text -json -yaml -output=prior_enumer.go vardrop.go
//go:generate go tool enumer -type=Reduction -trimprefix=Reduction -transform=snake -values -text -json -yaml -output=reduction_enumer.go vardrop.go

// Variant is the parameterization a Dense layer is built with.
//
// Variants are selected at model construction time, via DenseConfig.Variant
// or the ParamVariant hyperparameter, never by runtime type switching.
type Variant int

const (
	// VariantDense is a plain dense layer: no dispersion variable, no
	// penalty, no mask. It exists so a model can be built with the same code
	// in all three parameterizations.
	VariantDense Variant = iota

	// VariantVariational carries the (weights, log_sigma2) pair, uses the
	// local reparameterization trick while training and registers its
	// penalty with the trainer.
	VariantVariational

	// VariantMasked is the pruning-aware parameterization: weights plus a
	// frozen 0/1 mask, meant to receive state merged by the masked package.
	VariantMasked
)

// Prior is the family of priors assumed over the weights, which determines
// the penalty formula.
type Prior int

const (
	// PriorLogUniform is the (improper) log-uniform prior of variational
	// dropout. The penalty is a smooth saturating approximation of the
	// intractable KL term; complex weights get their own coefficients and
	// an exact closed form (see KLLogUniformComplexExact).
	PriorLogUniform Prior = iota

	// PriorGaussian is the factorized Gaussian prior with learned precision
	// (ARD). The penalty is the closed-form KL between Gaussians.
	PriorGaussian
)

// Reduction applied to a layer's per-element penalty tensor before it is
// yielded by Penalties.
type Reduction int

const (
	ReductionSum Reduction = iota
	ReductionMean
	// ReductionNone yields the raw per-element tensor.
	ReductionNone
)

// realDType maps complex dtypes to the dtype of their components; real
// dtypes map to themselves. Dispersion variables, log-alpha and masks are
// always real-valued, also for complex weights.
func realDType(dtype dtypes.DType) dtypes.DType {
	switch dtype {
	case dtypes.Complex64:
		return dtypes.Float32
	case dtypes.Complex128:
		return dtypes.Float64
	}
	return dtype
}

// constantInitializer returns a gomlx variable initializer that fills the
// variable with the given value, converted to the variable's dtype.
func constantInitializer(value float64) func(g *Graph, shape shapes.Shape) *Node {
	return func(g *Graph, shape shapes.Shape) *Node {
		return BroadcastToShape(Scalar(g, shape.DType, value), shape)
	}
}
