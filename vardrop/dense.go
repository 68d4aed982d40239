package vardrop

import (
	"math"

	"github.com/cheriylan/relevance/masked"
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/shapes"
)

// noiseEpsilon keeps the sampled standard deviation away from a zero
// gradient when log_sigma2 is at its strongly negative initialization.
const noiseEpsilon = 1e-12

// DenseConfig is created with Dense and configured with its methods, or by
// setting the corresponding hyperparameters in the context.
type DenseConfig struct {
	ctx           *context.Context
	input         *Node
	outputDim     int
	variant       Variant
	prior         Prior
	useBias       bool
	penaltyWeight float64
}

// Dense creates the configuration of a dense layer whose parameterization is
// selected at construction time: plain ("dense"), variational or masked.
// Defaults come from the context hyperparameters (ParamVariant, ParamPrior,
// ParamPenaltyWeight); call Config methods to override, then Done to build
// the graph and get the output.
//
// The variables are created in the given ctx scope: enter a sub-scope per
// layer (ctx.In("layer_0") etc.) as usual. The input must be rank-2,
// shaped [batchSize, inputDim]; the output is [batchSize, outputDim].
// Complex dtypes are supported; the dispersion parameter is real either way.
func Dense(ctx *context.Context, input *Node, outputDim int) *DenseConfig {
	if input.Rank() != 2 {
		Panicf("vardrop.Dense: input must be rank-2 [batchSize, inputDim], got shape %s", input.Shape())
	}
	if outputDim <= 0 {
		Panicf("vardrop.Dense: outputDim must be > 0, got %d", outputDim)
	}
	c := &DenseConfig{
		ctx:           ctx,
		input:         input,
		outputDim:     outputDim,
		useBias:       true,
		penaltyWeight: context.GetParamOr(ctx, ParamPenaltyWeight, 1.0),
	}
	variantName := context.GetParamOr(ctx, ParamVariant, VariantVariational.String())
	variant, err := VariantString(variantName)
	if err != nil {
		Panicf("invalid %q hyperparameter %q: options are %v", ParamVariant, variantName, VariantValues())
	}
	c.variant = variant
	priorName := context.GetParamOr(ctx, ParamPrior, PriorLogUniform.String())
	prior, err := PriorString(priorName)
	if err != nil {
		Panicf("invalid %q hyperparameter %q: options are %v", ParamPrior, priorName, PriorValues())
	}
	c.prior = prior
	return c
}

// Variant overrides the parameterization to build. Default is
// VariantVariational (or the ParamVariant hyperparameter).
func (c *DenseConfig) Variant(variant Variant) *DenseConfig {
	c.variant = variant
	return c
}

// Prior overrides the prior family of the penalty. Default is
// PriorLogUniform (or the ParamPrior hyperparameter). Only meaningful for
// VariantVariational.
func (c *DenseConfig) Prior(prior Prior) *DenseConfig {
	c.prior = prior
	return c
}

// PenaltyWeight overrides the scale of the penalty added to the loss.
// Zero disables the penalty term (the statistic and masks still work).
func (c *DenseConfig) PenaltyWeight(weight float64) *DenseConfig {
	c.penaltyWeight = weight
	return c
}

// UseBias sets whether to add a bias term. Default is true. Biases are
// mean-only in every variant: they are never variational and never masked.
func (c *DenseConfig) UseBias(useBias bool) *DenseConfig {
	c.useBias = useBias
	return c
}

// Done builds the layer into the graph and returns its output.
func (c *DenseConfig) Done() *Node {
	if c.variant == VariantMasked {
		return masked.Dense(c.ctx, c.input, c.outputDim).UseBias(c.useBias).Done()
	}

	ctx := c.ctx
	input := c.input
	g := input.Graph()
	dtype := input.DType()
	inputDim := input.Shape().Dim(-1)

	wVar := ctx.VariableWithShape(WeightsName, shapes.Make(dtype, inputDim, c.outputDim))
	w := wVar.ValueGraph(g)

	var output *Node
	if c.variant == VariantVariational {
		// Record the prior so Penalties/Masks reduce this scope the same way
		// the layer was trained.
		ctx.SetParam(ParamPrior, c.prior.String())
		lsVar := ctx.WithInitializer(constantInitializer(DispersionInit)).
			VariableWithShape(DispersionName, shapes.Make(realDType(dtype), inputDim, c.outputDim))
		if regularizer := Regularizer(c.prior, c.penaltyWeight); regularizer != nil {
			regularizer(ctx, g, wVar)
		}
		output = c.forwardVariational(w, lsVar.ValueGraph(g))
	} else {
		output = Dot(input, w)
	}

	if c.useBias {
		biasVar := ctx.VariableWithShape(BiasesName, shapes.Make(dtype, c.outputDim))
		output = Add(output, InsertAxes(biasVar.ValueGraph(g), 0))
	}
	return output
}

// forwardVariational implements the local reparameterization trick: instead
// of sampling a weight per element, sample the layer's pre-activation from
// its implied Gaussian -- mean x·w and variance (x⊙x̄)·sigma². Inference
// uses the mean path only.
func (c *DenseConfig) forwardVariational(w, logSigma2 *Node) *Node {
	ctx := c.ctx
	input := c.input
	g := input.Graph()
	dtype := input.DType()

	mean := Dot(input, w)
	if !ctx.IsTraining(g) {
		return mean
	}

	inputSq := Square(Abs(input)) // Real-valued also for complex inputs.
	variance := Dot(inputSq, Exp(logSigma2))
	std := Sqrt(AddScalar(variance, noiseEpsilon))

	if dtype.IsComplex() {
		// Circularly-symmetric complex noise: independent components, each
		// carrying half the variance.
		std = MulScalar(std, math.Sqrt(0.5))
		noise := Complex(ctx.RandomNormal(g, std.Shape()), ctx.RandomNormal(g, std.Shape()))
		return Add(mean, Mul(noise, ConvertDType(std, dtype)))
	}
	noise := ctx.RandomNormal(g, std.Shape())
	return Add(mean, Mul(noise, std))
}
