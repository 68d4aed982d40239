package vardrop

import (
	"iter"

	"github.com/cheriylan/relevance/statedict"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
)

// DefaultSharpness of the soft relevance mask: steep enough that the soft
// mask agrees with the hard one except in a narrow band around the
// threshold.
const DefaultSharpness = 10.0

// DefaultThreshold is the log-alpha threshold used when ParamThreshold is
// not set in the context.
const DefaultThreshold = 1.0

// Threshold returns the log-alpha pruning threshold configured with the
// ParamThreshold hyperparameter, or DefaultThreshold when unset. It lets
// pruning code keep the threshold next to the model's other
// hyperparameters instead of passing it around separately.
func Threshold(ctx *context.Context) float64 {
	return context.GetParamOr(ctx, ParamThreshold, DefaultThreshold)
}

// Mask computes the relevance mask of a log-alpha tensor: an element is
// kept iff logAlpha < threshold.
//
// With hard=true, the result holds exactly 0 (dropped) or 1 (kept), in
// logAlpha's dtype. With hard=false it is the soft surrogate
// MaskSoft(logAlpha, threshold, DefaultSharpness), usable in differentiable
// pruning schedules.
func Mask(logAlpha *Node, threshold float64, hard bool) *Node {
	if hard {
		g := logAlpha.Graph()
		kept := LessThan(logAlpha, Scalar(g, logAlpha.DType(), threshold))
		return ConvertDType(kept, logAlpha.DType())
	}
	return MaskSoft(logAlpha, threshold, DefaultSharpness)
}

// MaskSoft is the sigmoid-smoothed relevance indicator
// sigmoid(sharpness·(threshold − logAlpha)), in (0, 1). It converges
// pointwise to the hard mask as sharpness grows (except exactly at the
// threshold).
func MaskSoft(logAlpha *Node, threshold, sharpness float64) *Node {
	return Sigmoid(MulScalar(AddScalar(Neg(logAlpha), threshold), sharpness))
}

// Masks lazily yields (name, mask) for every variational pair in the
// context, mirroring Penalties. The mask is real-valued and has the
// dimensions of the pair's weights; the name is the weights'
// scope-qualified name.
//
// The threshold is taken per call and not stored anywhere: the same context
// can be queried at many thresholds.
func Masks(ctx *context.Context, g *Graph, threshold float64, hard bool) iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		for p := range Pairs(ctx) {
			if !yield(p.Name(), Mask(p.LogAlphaOf(g), threshold, hard)) {
				return
			}
		}
	}
}

// ComputeMasks materializes the hard relevance masks of every variational
// pair in one execution, returning them keyed by the weights'
// scope-qualified name -- the batch form consumed by masked.Merge.
//
// Returns an empty state when the context holds no variational pair.
func ComputeMasks(backend backends.Backend, ctx *context.Context, threshold float64) statedict.State {
	var names []string
	for p := range Pairs(ctx) {
		names = append(names, p.Name())
	}
	if len(names) == 0 {
		return statedict.State{}
	}

	exec := context.NewExec(backend, ctx, func(ctx *context.Context, g *Graph) []*Node {
		var masks []*Node
		for _, mask := range Masks(ctx, g, threshold, true) {
			masks = append(masks, mask)
		}
		return masks
	})
	defer exec.Finalize()

	values := exec.Call()
	masks := make(statedict.State, len(names))
	for ii, name := range names {
		masks[name] = values[ii]
	}
	return masks
}
