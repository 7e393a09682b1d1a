// Package report collects evaluation results across boosting iterations and
// renders them as learning curves.
package report

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/gboost/metrics"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Key names one learning curve.
type Key struct {
	Dataset string
	Metric  string
}

func (k Key) String() string { return k.Dataset + "-" + k.Metric }

// Recorder accumulates (iteration, value) points per dataset and metric.
type Recorder struct {
	order  []Key
	series map[Key]plotter.XYs
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{series: make(map[Key]plotter.XYs)}
}

// Add records the results of one iteration.
func (r *Recorder) Add(iter int, results []metrics.Result) {
	for _, res := range results {
		k := Key{Dataset: res.Dataset, Metric: res.Metric}
		if _, ok := r.series[k]; !ok {
			r.order = append(r.order, k)
		}
		r.series[k] = append(r.series[k], plotter.XY{X: float64(iter), Y: float64(res.Value)})
	}
}

// Keys returns the recorded curves in first-seen order.
func (r *Recorder) Keys() []Key {
	out := make([]Key, len(r.order))
	copy(out, r.order)
	return out
}

// Series returns the points of one curve, or nil.
func (r *Recorder) Series(dataset, metric string) plotter.XYs {
	return r.series[Key{Dataset: dataset, Metric: metric}]
}

// SavePlot draws every curve on one plot and writes it to path. The image
// format follows the extension (.png, .svg, .pdf, ...).
func (r *Recorder) SavePlot(path, title string) error {
	if len(r.order) == 0 {
		return gberrors.ErrEmptyData
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "value"
	p.Add(plotter.NewGrid())

	for i, k := range r.order {
		line, points, err := plotter.NewLinePoints(r.series[k])
		if err != nil {
			return gberrors.Wrapf(err, "plotting %s", k)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.2)
		points.GlyphStyle.Color = plotutil.Color(i)
		points.GlyphStyle.Shape = plotutil.Shape(i)
		points.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(k.String(), line, points)
	}
	p.Legend.Top = true

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return gberrors.Wrap(err, "failed to create plot directory")
		}
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return gberrors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
