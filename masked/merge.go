package masked

import (
	"slices"

	"github.com/cheriylan/relevance/statedict"
	. "github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
)

// Record is the result of a Merge: the weight snapshot with dropped
// elements zeroed, together with the masks that produced it. The masks are
// carried for audit and for populating masked layers' mask variables; they
// are not folded into State beyond the zeroing.
type Record struct {
	State statedict.State
	Masks statedict.State
}

// Merge zeroes dropped weight elements: for every name present in both
// state and masks, the weight is multiplied elementwise by the hardened
// mask (values ≥ 0.5 are kept, below dropped). Names present in state but
// absent from masks -- biases, non-variational layers -- pass through
// unchanged. Names present only in masks contribute nothing.
//
// A mask whose dimensions disagree with its weight's is a fatal
// precondition violation: Merge panics, it never broadcasts.
//
// Merge runs on materialized tensors, outside any gradient tracking.
func Merge(backend backends.Backend, state, masks statedict.State) *Record {
	exec := graph.NewExec(backend, func(w, mask *graph.Node) *graph.Node {
		g := w.Graph()
		kept := graph.GreaterOrEqual(mask, graph.Scalar(g, mask.DType(), 0.5))
		hardened := graph.ConvertDType(kept, w.DType())
		return graph.Mul(w, hardened)
	})
	// One graph instantiation per distinct (shape, dtype) pair; a large model
	// may carry more of those than the default cache admits.
	exec.SetMaxCache(len(state))
	defer exec.Finalize()

	pruned := make(statedict.State, len(state))
	for _, name := range state.SortedKeys() {
		w := state[name]
		mask, found := masks[name]
		if !found {
			pruned[name] = w
			continue
		}
		if !slices.Equal(w.Shape().Dimensions, mask.Shape().Dimensions) {
			Panicf("masked.Merge: mask for %q has dimensions %v, weights have %v",
				name, mask.Shape().Dimensions, w.Shape().Dimensions)
		}
		pruned[name] = exec.Call(w, mask)[0]
	}
	return &Record{State: pruned, Masks: masks}
}

// Apply loads the merged record into a context holding masked (or plain
// dense) layers: pruned weights are transferred under the given policy, and
// for every mask whose layer has a MaskName variable, that variable is set.
//
// Record entries with no destination variable (e.g. dispersion tensors that
// passed through the merge) and masks without a mask variable are tolerated
// under PolicyIgnoreUnmatched. Mask/variable shape mismatches surface as
// transfer errors.
func (r *Record) Apply(ctx *context.Context, policy statedict.Policy) error {
	state := r.State.Clone()
	for _, name := range r.Masks.SortedKeys() {
		scope, _ := statedict.SplitKey(name)
		maskKey := scope + context.ScopeSeparator + MaskName
		if ctx.InspectVariable(scope, MaskName) == nil {
			continue
		}
		state[maskKey] = r.Masks[name]
	}
	return statedict.Transfer(ctx, state, policy)
}
