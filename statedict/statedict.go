// Package statedict snapshots gomlx context variables into plain name→tensor
// maps and transfers them back, with an explicit policy for partially
// matching parameter sets.
//
// It is the narrow state interface used when moving weights between
// parameterizations of the same model -- dense, variational and masked
// layers share the "weights" (and "biases") keys and differ in their
// auxiliary variables ("log_sigma2", "mask"). A transfer under
// PolicyIgnoreUnmatched copies the intersection and leaves everything else
// exactly as initialized, which is the designed behavior: a variational
// layer receiving dense weights keeps its dispersion at the
// maximal-relevance initialization, and a masked layer receiving
// variational state simply drops the dispersion entries.
//
// Keys are scope-qualified variable names ("/model/layer_0/weights"), the
// same shape of identifier the checkpoints package persists.
package statedict

import (
	"sort"
	"strings"

	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// State is a snapshot of variable values keyed by scope-qualified name.
// It has no lifecycle of its own: tensors are shared with whoever produced
// them.
type State map[string]*tensors.Tensor

// Key returns the scope-qualified name of a variable, the key State uses.
func Key(v *context.Variable) string {
	return v.Scope() + context.ScopeSeparator + v.Name()
}

// SplitKey splits a State key back into the variable's scope and name.
func SplitKey(key string) (scope, name string) {
	idx := strings.LastIndex(key, context.ScopeSeparator)
	if idx < 0 {
		return context.ScopeSeparator, key
	}
	scope, name = key[:idx], key[idx+1:]
	if scope == "" {
		scope = context.ScopeSeparator
	}
	return
}

// SortedKeys returns the state's keys in lexicographic order, for
// deterministic iteration.
func (s State) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy: same tensors, new map.
func (s State) Clone() State {
	clone := make(State, len(s))
	for key, value := range s {
		clone[key] = value
	}
	return clone
}

// FromContext snapshots every materialized variable of the context.
// Variables without a value (not yet initialized, or lazily loaded and
// untouched) are skipped.
func FromContext(ctx *context.Context) State {
	state := State{}
	ctx.EnumerateVariables(func(v *context.Variable) {
		value := v.Value()
		if value == nil {
			return
		}
		state[Key(v)] = value
	})
	return state
}

// FromScope is like FromContext restricted to variables under the current
// scope of ctx.
func FromScope(ctx *context.Context) State {
	state := State{}
	ctx.EnumerateVariablesInScope(func(v *context.Variable) {
		value := v.Value()
		if value == nil {
			return
		}
		state[Key(v)] = value
	})
	return state
}

//go:generate go tool enumer -type=Policy -trimprefix=Policy -transform=snake -values -text -json -yaml -output=policy_enumer.go statedict.go

// Policy decides what Transfer does with parameter names present on only
// one side.
type Policy int

const (
	// PolicyIgnoreUnmatched is the partial-transfer mode: unmatched names on
	// either side are tolerated and logged at verbosity 1.
	PolicyIgnoreUnmatched Policy = iota

	// PolicyFailUnmatched requires source and destination to match exactly;
	// any unmatched name on either side is an error.
	PolicyFailUnmatched
)

// Transfer copies state values into the context's variables, matching by
// scope-qualified name.
//
// Matched names must agree in shape and dtype, or an error is returned
// (never silently reshaped). Unmatched names -- state entries with no
// destination variable, or destination variables with no state entry -- are
// handled per policy. Destination variables left unmatched keep their
// current (or initializer-given) values untouched.
func Transfer(ctx *context.Context, state State, policy Policy) error {
	matched := make(map[string]bool, len(state))
	var missingInState []string
	var err error
	ctx.EnumerateVariables(func(v *context.Variable) {
		if err != nil {
			return
		}
		key := Key(v)
		value, found := state[key]
		if !found {
			missingInState = append(missingInState, key)
			return
		}
		matched[key] = true
		if !value.Shape().Equal(v.Shape()) {
			err = errors.Errorf("statedict.Transfer: value for %q has shape %s, variable has shape %s",
				key, value.Shape(), v.Shape())
			return
		}
		v.SetValue(value)
	})
	if err != nil {
		return err
	}

	var missingInContext []string
	for key := range state {
		if !matched[key] {
			missingInContext = append(missingInContext, key)
		}
	}
	sort.Strings(missingInContext)
	sort.Strings(missingInState)

	if policy == PolicyFailUnmatched && (len(missingInContext) > 0 || len(missingInState) > 0) {
		return errors.Errorf("statedict.Transfer: unmatched names with %s: %d state entries without a variable (%v), "+
			"%d variables without a state entry (%v)",
			policy, len(missingInContext), missingInContext, len(missingInState), missingInState)
	}
	if klog.V(1).Enabled() {
		for _, key := range missingInContext {
			klog.Infof("statedict.Transfer: ignored state entry %q, no matching variable", key)
		}
		for _, key := range missingInState {
			klog.Infof("statedict.Transfer: variable %q not in state, keeping current value", key)
		}
	}
	return nil
}
