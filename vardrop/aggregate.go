package vardrop

import (
	"iter"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
)

// Pair is a variational parameterization found in the context: the weights
// mean and its log-variance, living in the same scope.
type Pair struct {
	Weights, Dispersion *context.Variable
}

// Name returns the scope-qualified name of the pair's weights variable, the
// key under which penalties, masks and merged state refer to this layer.
func (p Pair) Name() string {
	return p.Weights.Scope() + context.ScopeSeparator + p.Weights.Name()
}

// Pairs iterates over all variational (weights, log_sigma2) pairs in the
// context, in variable creation order -- which for a model built once
// top-down is a depth-first traversal of its scope tree. Scopes without a
// dispersion variable are simply not yielded; their sub-scopes still are.
//
// The iterator is restartable and holds no state between uses.
func Pairs(ctx *context.Context) iter.Seq[Pair] {
	return func(yield func(Pair) bool) {
		stopped := false
		ctx.EnumerateVariables(func(v *context.Variable) {
			if stopped || v.Name() != DispersionName {
				return
			}
			wVar := ctx.InspectVariable(v.Scope(), WeightsName)
			if wVar == nil {
				return
			}
			if !yield(Pair{Weights: wVar, Dispersion: v}) {
				stopped = true
			}
		})
	}
}

// LogAlphaOf computes the log-alpha statistic of one pair in the given graph.
func (p Pair) LogAlphaOf(g *Graph) *Node {
	return LogAlpha(p.Weights.ValueGraph(g), p.Dispersion.ValueGraph(g))
}

// priorOf reads the prior family recorded in the pair's scope (set by the
// Dense builder), defaulting to the log-uniform family.
func priorOf(ctx *context.Context, p Pair) Prior {
	name := context.GetParamOr(ctx.InAbsPath(p.Weights.Scope()), ParamPrior, PriorLogUniform.String())
	prior, err := PriorString(name)
	if err != nil {
		Panicf("invalid %q hyperparameter %q in scope %q: options are %v",
			ParamPrior, name, p.Weights.Scope(), PriorValues())
	}
	return prior
}

// Penalties lazily yields (name, penalty) for every variational pair in the
// context, with the given reduction applied to each pair's per-element
// penalty tensor. Names are scope-qualified (see Pair.Name), so nested
// layers report under their full path.
//
// The prior family of each pair is the one its layer was built with. The
// sequence is empty when the context holds no variational pair.
func Penalties(ctx *context.Context, g *Graph, reduction Reduction) iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		for p := range Pairs(ctx) {
			penalty := Penalty(priorOf(ctx, p), p.LogAlphaOf(g), p.Weights.Shape().DType.IsComplex())
			switch reduction {
			case ReductionSum:
				penalty = ReduceAllSum(penalty)
			case ReductionMean:
				penalty = ReduceAllMean(penalty)
			case ReductionNone:
				// Raw tensor.
			default:
				Panicf("vardrop.Penalties: invalid reduction %d, options are %v",
					reduction, ReductionValues())
			}
			if !yield(p.Name(), penalty) {
				return
			}
		}
	}
}

// TotalPenalty sums the penalties of every variational pair into one scalar,
// converting dtypes to the first pair's (real) dtype if they disagree.
//
// A context with no variational pair yields exactly a zero scalar
// (dtypes.Float32), so callers can add the result to a loss unconditionally.
func TotalPenalty(ctx *context.Context, g *Graph) *Node {
	var total *Node
	for _, penalty := range Penalties(ctx, g, ReductionSum) {
		if total == nil {
			total = penalty
			continue
		}
		if penalty.DType() != total.DType() {
			penalty = ConvertDType(penalty, total.DType())
		}
		total = Add(total, penalty)
	}
	if total == nil {
		return ScalarZero(g, dtypes.Float32)
	}
	return total
}
