package vardrop

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
)

const (
	// LogAlphaMin and LogAlphaMax bound the returned log-alpha. The raw
	// ratio diverges as the mean approaches zero; clamping keeps every
	// downstream penalty formula finite across the whole range.
	LogAlphaMin = -20.0
	LogAlphaMax = 20.0

	// logAlphaEpsilon guards the logarithm when the mean is exactly zero.
	logAlphaEpsilon = 1e-12
)

// LogAlpha computes the relevance statistic log(sigma² / |w|²) from a
// weights mean w and its log-variance logSigma2.
//
// For complex w the squared magnitude is used and the result is real-valued,
// with the dtype of logSigma2. The result is clamped to
// [LogAlphaMin, LogAlphaMax]. Low values mean a confident, relevant weight;
// high values mean noise-dominated, a pruning candidate.
//
// Pure function of its inputs: nothing is cached, gradients flow through
// both w and logSigma2.
func LogAlpha(w, logSigma2 *Node) *Node {
	sq := Square(Abs(w)) // Abs of a complex node is its real-valued magnitude.
	if sq.DType() != logSigma2.DType() {
		Panicf("vardrop.LogAlpha: weights dtype %s is incompatible with log_sigma2 dtype %s",
			w.DType(), logSigma2.DType())
	}
	if !sq.Shape().EqualDimensions(logSigma2.Shape()) {
		Panicf("vardrop.LogAlpha: weights shape %s does not match log_sigma2 shape %s",
			w.Shape(), logSigma2.Shape())
	}
	logAlpha := Sub(logSigma2, Log(AddScalar(sq, logAlphaEpsilon)))
	return ClipScalar(logAlpha, LogAlphaMin, LogAlphaMax)
}
