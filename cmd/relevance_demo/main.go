// relevance_demo trains a small sparse-regression model with variational
// dropout, sweeps the relevance threshold, and merges the selected masks
// into a pruned masked model.
//
// The synthetic task has many input features of which only a few carry
// signal, so a well-trained run prunes most of the weights with no loss of
// accuracy. Try:
//
//	relevance_demo -steps=2000 -features=32 -relevant=4 -penalty=0.05
package main

import (
	"flag"
	"fmt"
	"math/rand"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/cheriylan/relevance/masked"
	"github.com/cheriylan/relevance/statedict"
	"github.com/cheriylan/relevance/vardrop"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/losses"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagSteps     = flag.Int("steps", 2000, "Number of training steps.")
	flagBatchSize = flag.Int("batch", 128, "Batch size per training step.")
	flagFeatures  = flag.Int("features", 32, "Number of input features.")
	flagRelevant  = flag.Int("relevant", 4, "Number of features that actually carry signal.")
	flagPenalty   = flag.Float64("penalty", 0.05, "Scale of the relevance penalty added to the loss.")
	flagThreshold = flag.Float64("threshold", vardrop.DefaultThreshold,
		"Log-alpha threshold used for the final merge.")
	flagPrior     = flag.String("prior", vardrop.PriorLogUniform.String(),
		fmt.Sprintf("Prior family of the penalty, one of %v.", vardrop.PriorStrings()))
	flagLR   = flag.Float64("learning_rate", 0.01, "Adam learning rate.")
	flagSeed = flag.Int64("seed", 42, "Seed of the synthetic data generator.")
)

var titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)

func newTable(header ...string) *lgtable.Table {
	headerStyle := lipgloss.NewStyle().Reverse(true).Padding(0, 1).Align(lipgloss.Center)
	rowStyle := lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 1 {
				return headerStyle
			}
			return rowStyle
		})
	table.Row(header...)
	return table
}

func main() {
	flag.Parse()
	prior, err := vardrop.PriorString(*flagPrior)
	if err != nil {
		klog.Exitf("Invalid -prior=%q: options are %v.", *flagPrior, vardrop.PriorStrings())
	}
	if *flagRelevant > *flagFeatures {
		klog.Exitf("-relevant=%d cannot exceed -features=%d.", *flagRelevant, *flagFeatures)
	}

	backend := backends.MustNew()
	rng := rand.New(rand.NewSource(*flagSeed))

	// Ground truth: only the first -relevant features matter.
	trueWeights := make([]float32, *flagFeatures)
	for i := 0; i < *flagRelevant; i++ {
		trueWeights[i] = float32(rng.NormFloat64() + 2.0)
	}

	ctx := context.New()
	ctx.SetParam(optimizers.ParamLearningRate, *flagLR)
	ctx.SetParam(vardrop.ParamThreshold, *flagThreshold)
	modelFn := func(ctx *context.Context, _ any, inputs []*graph.Node) []*graph.Node {
		output := vardrop.Dense(ctx.In("model").In("dense0"), inputs[0], 1).
			Prior(prior).
			PenaltyWeight(*flagPenalty).
			Done()
		return []*graph.Node{output}
	}

	trainModel(backend, ctx, modelFn, rng, trueWeights)
	sweepThresholds(backend, ctx)
	record := mergeAtThreshold(backend, ctx)
	evaluatePruned(backend, ctx, record, rng, trueWeights)
}

func sampleBatch(rng *rand.Rand, trueWeights []float32, batchSize int) (x [][]float32, y [][]float32) {
	x = make([][]float32, batchSize)
	y = make([][]float32, batchSize)
	for i := range x {
		x[i] = make([]float32, len(trueWeights))
		var sum float32
		for j := range x[i] {
			x[i][j] = float32(rng.NormFloat64())
			sum += trueWeights[j] * x[i][j]
		}
		y[i] = []float32{sum + 0.01*float32(rng.NormFloat64())}
	}
	return
}

func trainModel(backend backends.Backend, ctx *context.Context, modelFn train.ModelFn,
	rng *rand.Rand, trueWeights []float32) {
	trainer := train.NewTrainer(backend, ctx, modelFn,
		losses.MeanSquaredError,
		optimizers.Adam().Done(),
		nil, nil)

	bar := progressbar.Default(int64(*flagSteps), "training")
	var loss float32
	for step := 0; step < *flagSteps; step++ {
		x, y := sampleBatch(rng, trueWeights, *flagBatchSize)
		metrics := trainer.TrainStep(nil,
			[]*tensors.Tensor{tensors.FromValue(x)}, []*tensors.Tensor{tensors.FromValue(y)})
		loss = metrics[0].Value().(float32)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Printf("Final training loss (including penalty): %.5f\n", loss)
}

// sweepThresholds reports, for a range of thresholds, how many weights a
// merge at that threshold would keep. The context is only read.
func sweepThresholds(backend backends.Backend, ctx *context.Context) {
	fmt.Println(titleStyle.Render("Threshold sweep"))
	table := newTable("Threshold", "Kept", "Total", "Sparsity")
	for _, threshold := range []float64{-4, -2, -1, 0, 1, 2, 4} {
		kept, total := 0, 0
		for _, mask := range vardrop.ComputeMasks(backend, ctx, threshold) {
			for _, v := range tensors.CopyFlatData[float32](mask) {
				total++
				if v >= 0.5 {
					kept++
				}
			}
		}
		table.Row(
			fmt.Sprintf("%.1f", threshold),
			humanize.Comma(int64(kept)),
			humanize.Comma(int64(total)),
			fmt.Sprintf("%.1f%%", 100*float64(total-kept)/float64(total)),
		)
	}
	fmt.Println(table.Render())
}

func mergeAtThreshold(backend backends.Backend, ctx *context.Context) *masked.Record {
	threshold := vardrop.Threshold(ctx)
	masks := vardrop.ComputeMasks(backend, ctx, threshold)
	state := statedict.FromScope(ctx.In("model"))
	record := masked.Merge(backend, state, masks)

	fmt.Println(titleStyle.Render(fmt.Sprintf("Merged state at threshold %.2f", threshold)))
	table := newTable("Name", "Shape", "Bytes")
	for _, name := range record.State.SortedKeys() {
		shape := record.State[name].Shape()
		table.Row(name, shape.String(), humanize.Bytes(uint64(shape.Memory())))
	}
	fmt.Println(table.Render())
	return record
}

// evaluatePruned loads the merged record into a fresh masked model and
// compares its error against the trained variational model's mean path on
// held-out data.
func evaluatePruned(backend backends.Backend, ctx *context.Context, record *masked.Record,
	rng *rand.Rand, trueWeights []float32) {
	prunedCtx := context.New()
	prunedExec := context.NewExec(backend, prunedCtx, func(ctx *context.Context, x *graph.Node) *graph.Node {
		return masked.Dense(ctx.In("model").In("dense0"), x, 1).Done()
	})
	defer prunedExec.Finalize()

	denseExec := context.NewExec(backend, ctx.Reuse(), func(ctx *context.Context, x *graph.Node) *graph.Node {
		return vardrop.Dense(ctx.In("model").In("dense0"), x, 1).PenaltyWeight(0).Done()
	})
	defer denseExec.Finalize()

	x, y := sampleBatch(rng, trueWeights, 1024)
	xT := tensors.FromValue(x)

	// First call creates the masked model's variables, then the record
	// overwrites them.
	_ = prunedExec.Call(xT)
	must.M(record.Apply(prunedCtx, statedict.PolicyIgnoreUnmatched))

	prunedMSE := mse(tensors.CopyFlatData[float32](prunedExec.Call(xT)[0]), y)
	denseMSE := mse(tensors.CopyFlatData[float32](denseExec.Call(xT)[0]), y)

	fmt.Println(titleStyle.Render("Held-out mean squared error"))
	table := newTable("Model", "MSE")
	table.Row("variational (mean path)", fmt.Sprintf("%.5f", denseMSE))
	table.Row("pruned masked", fmt.Sprintf("%.5f", prunedMSE))
	fmt.Println(table.Render())
}

func mse(pred []float32, labels [][]float32) float64 {
	var sum float64
	for i, p := range pred {
		diff := float64(p) - float64(labels[i][0])
		sum += diff * diff
	}
	return sum / float64(len(pred))
}
