package solver

import (
	"fmt"
	"io"
	"time"

	"github.com/notargets/m2c-go/fvm"
	"github.com/notargets/m2c-go/state"
	"github.com/notargets/m2c-go/utils"
)

// OutputWriter reports console summaries and, when a probe line is
// configured, a live line chart of a flow quantity along that line —
// matching Euler2D's optional plotting path (utils.NewLineChart) gated
// behind the same Graph/GraphDelay flags style as cmd/2D.go.
type OutputWriter struct {
	w          io.Writer
	chart      *utils.LineChart
	graphDelay time.Duration
}

// NewOutputWriter constructs an OutputWriter writing console summaries to
// w. Pass enableChart=true to also open a live line chart window for the
// configured probe (§6 "optional line and probe outputs").
func NewOutputWriter(w io.Writer, enableChart bool, xmin, xmax, fmin, fmax float64) *OutputWriter {
	ow := &OutputWriter{w: w, graphDelay: 0}
	if enableChart {
		ow.chart = utils.NewLineChart(800, 600, xmin, xmax, fmin, fmax)
	}
	return ow
}

// WriteStepSummary writes the per-step extrema summary, matching
// Euler2D's PrintUpdate console line.
func (ow *OutputWriter) WriteStepSummary(step int, t, dt float64, extrema fvm.Extrema) {
	fmt.Fprintf(ow.w, "step %6d  t=%.6g  dt=%.3g  rho=[%.4g,%.4g]  p=[%.4g,%.4g]  maxMach=%.4g\n",
		step, t, dt, extrema.MinDensity, extrema.MaxDensity, extrema.MinPressure, extrema.MaxPressure, extrema.MaxMach)
}

// PlotProbeLine plots flow quantity f evaluated along the supplied x
// coordinates and primitive states, if a chart was requested.
func (ow *OutputWriter) PlotProbeLine(x []float64, v []state.Primitive, eos state.EOS, f state.FlowFunction, name string) {
	if ow.chart == nil {
		return
	}
	values := make([]float64, len(v))
	for i := range v {
		values[i] = state.Evaluate(f, v[i], eos)
	}
	ow.chart.Plot(ow.graphDelay, x, values, 0, name)
}

// WriteFinalSummary writes the end-of-run summary, matching Euler2D's
// PrintFinal.
func (ow *OutputWriter) WriteFinalSummary(steps int, t float64) {
	fmt.Fprintf(ow.w, "completed %d steps, final time=%.6g\n", steps, t)
}
