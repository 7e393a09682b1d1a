package learner

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/YuminosukeSato/gboost/core/model"
	"github.com/YuminosukeSato/gboost/data"
	"github.com/YuminosukeSato/gboost/gbm"
	"github.com/YuminosukeSato/gboost/objective"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boostCall struct {
	group     int
	gpair     []data.GradPair
	rootIndex []uint32
	offset    int64
}

// recorder is a booster that predicts 0 and records every DoBoost call.
type recorder struct {
	ngroup  int
	calls   []boostCall
	cleared []int64
}

func (r *recorder) SetParam(name, value string) {
	if name == "num_class" || name == "num_output_group" {
		if v, err := strconv.Atoi(value); err == nil {
			r.ngroup = max(v, 1)
		}
	}
}

func (r *recorder) InitModel() error { return nil }

func (r *recorder) DoBoost(gpair []data.GradPair, d *data.DMatrix, rootIndex []uint32, group int, bufferOffset int64) error {
	r.calls = append(r.calls, boostCall{
		group:     group,
		gpair:     append([]data.GradPair(nil), gpair...),
		rootIndex: rootIndex,
		offset:    bufferOffset,
	})
	return nil
}

func (r *recorder) Predict(*data.DMatrix, int, int64, uint32, int) float32 { return 0 }
func (r *recorder) NumGroup() int                                          { return r.ngroup }
func (r *recorder) NumUnits() int                                          { return len(r.calls) }
func (r *recorder) ClearBuffer(offset int64, rows int)                     { r.cleared = append(r.cleared, offset) }

func (r *recorder) DeleteLast() error {
	if len(r.calls) == 0 {
		return gberrors.NewStateError("recorder.DeleteLast", "empty")
	}
	r.calls = r.calls[:len(r.calls)-1]
	return nil
}

func (r *recorder) SaveModel(w io.Writer) error {
	sw := model.NewStreamWriter(w)
	sw.WriteInt32(int32(r.ngroup))
	return sw.Err()
}

func (r *recorder) LoadModel(rd io.Reader) error {
	sr := model.NewStreamReader(rd, "recorder.LoadModel")
	r.ngroup = int(sr.ReadInt32("ngroup"))
	return sr.Err()
}

func (r *recorder) Dump(bool) []string { return nil }
func (r *recorder) Name() string       { return "recorder" }

// oversized returns one more gradient pair than there are predictions.
type oversized struct{}

func (oversized) SetParam(string, string) {}
func (oversized) GetGradient(preds []float32, _ *data.Info, _ int) ([]data.GradPair, error) {
	return make([]data.GradPair, len(preds)+1), nil
}
func (oversized) PredTransform(p []float32, _ int) []float32 { return p }
func (oversized) EvalTransform(p []float32, _ int) []float32 { return p }
func (oversized) DefaultEvalMetric() string                  { return "rmse" }
func (oversized) ProbToMargin(b float32) (float32, error)    { return b, nil }
func (oversized) Name() string                               { return "test:oversized" }

func init() {
	gbm.Register("recorder", func() gbm.Booster { return &recorder{ngroup: 1} })
	objective.Register("test:oversized", func() objective.Objective { return oversized{} })
}

func newTrained(t *testing.T, params map[string]string, d *data.DMatrix) *Learner {
	t.Helper()
	l := New()
	t.Cleanup(l.Close)
	for k, v := range params {
		require.NoError(t, l.SetParam(k, v))
	}
	require.NoError(t, l.SetCacheData([]*data.DMatrix{d}))
	require.NoError(t, l.InitModel())
	return l
}

func TestSetParam(t *testing.T) {
	l := New()
	require.NoError(t, l.SetParam("objective", "binary:logistic"))
	require.NoError(t, l.SetParam("base_score", "0.3"))
	require.NoError(t, l.SetParam("eta", "0.1"))
	require.NoError(t, l.SetParam("eval_metric", "logloss"))

	assert.Equal(t, float32(0.3), l.Header().BaseScore)
	assert.Len(t, l.Config(), 4)
	assert.Equal(t, []string{"logloss"}, l.EvalNames())

	err := l.SetParam("eval_metric", "nosuch")
	var ce *gberrors.ConfigurationError
	require.True(t, gberrors.As(err, &ce))
	assert.Equal(t, "metric", ce.Kind)
	require.Len(t, l.Config(), 5)
	assert.Equal(t, ConfigPair{Key: "eval_metric", Value: "nosuch"}, l.Config()[4])
	assert.Equal(t, []string{"logloss"}, l.EvalNames())

	require.NoError(t, l.InitModel())
	assert.Equal(t, "binary:logistic", l.Objective().Name())
	assert.InDelta(t, gberrors.Logit(0.3), l.Header().BaseScore, 1e-6)
	assert.Equal(t, []string{"logloss", "error"}, l.EvalNames())

	// After initialization the names and header are frozen.
	require.NoError(t, l.SetParam("objective", "reg:linear"))
	require.NoError(t, l.SetParam("base_score", "0.9"))
	assert.Equal(t, "binary:logistic", l.Objective().Name())
	assert.InDelta(t, gberrors.Logit(0.3), l.Header().BaseScore, 1e-6)
}

func TestInitModelErrors(t *testing.T) {
	t.Run("unknown objective", func(t *testing.T) {
		l := New()
		require.NoError(t, l.SetParam("objective", "reg:bogus"))
		err := l.InitModel()
		var ce *gberrors.ConfigurationError
		require.True(t, gberrors.As(err, &ce))
		assert.Equal(t, "objective", ce.Kind)
	})
	t.Run("unknown booster", func(t *testing.T) {
		l := New()
		require.NoError(t, l.SetParam("booster", "gbforest"))
		err := l.InitModel()
		var ce *gberrors.ConfigurationError
		require.True(t, gberrors.As(err, &ce))
		assert.Equal(t, "booster", ce.Kind)
	})
	t.Run("base_score outside (0,1) for logistic", func(t *testing.T) {
		l := New()
		require.NoError(t, l.SetParam("objective", "binary:logistic"))
		require.NoError(t, l.SetParam("base_score", "1.5"))
		err := l.InitModel()
		var se *gberrors.StateError
		require.True(t, gberrors.As(err, &se))
	})
	t.Run("operations before init", func(t *testing.T) {
		l := New()
		d := lineDataset([]float32{1}, []float32{1})
		var nf *gberrors.NotFittedError
		assert.True(t, gberrors.As(l.UpdateOneIter(0, d), &nf))
		_, err := l.Predict(d, -1)
		assert.True(t, gberrors.As(err, &nf))
		_, _, err = l.Evaluate(d, "auto")
		assert.True(t, gberrors.As(err, &nf))
	})
}

func TestSetCacheData(t *testing.T) {
	tl := captureLogs(t)
	d1 := data.New()
	d1.AddRow([]data.Entry{{Index: 4, Value: 1}}, 0)
	d2 := lineDataset([]float32{1, 2}, []float32{0, 0})

	l := New()
	defer l.Close()
	require.NoError(t, l.SetCacheData([]*data.DMatrix{d1, d2, d1}))
	assert.Equal(t, uint32(5), l.Header().NumFeature)
	assert.Len(t, l.Cache().Entries(), 2)
	assert.Contains(t, l.Config(), ConfigPair{"num_pbuffer", "3"})
	assert.True(t, tl.ContainsMessage("prediction cache registered"))

	err := l.SetCacheData([]*data.DMatrix{d2})
	var se *gberrors.StateError
	require.True(t, gberrors.As(err, &se))
}

func TestSilent(t *testing.T) {
	tl := captureLogs(t)
	d := lineDataset([]float32{1, 2}, []float32{0, 1})
	newTrained(t, map[string]string{"silent": "1"}, d)
	assert.Equal(t, 0, tl.CountLevel(log.LevelInfo))
}

func TestAutoSelectMultiClass(t *testing.T) {
	d := lineDataset([]float32{1, 2, 3}, []float32{0, 1, 2})
	l := newTrained(t, map[string]string{"num_class": "3"}, d)
	assert.Equal(t, "multi:softmax", l.Objective().Name())
	assert.Equal(t, 3, l.Booster().NumGroup())

	l = newTrained(t, map[string]string{"num_class": "3", "objective": "multi:softprob"},
		lineDataset([]float32{1}, []float32{0}))
	assert.Equal(t, "multi:softprob", l.Objective().Name())
}

func TestMultiClassGradientSlices(t *testing.T) {
	d := lineDataset([]float32{1, 2, 3, 4}, []float32{0, 1, 2, 1})
	l := newTrained(t, map[string]string{"num_class": "3", "booster": "recorder"}, d)
	rec := l.Booster().(*recorder)
	require.Equal(t, 3, rec.NumGroup())

	require.NoError(t, l.UpdateOneIter(0, d))
	require.Len(t, rec.calls, 3)

	obj, err := objective.Create("multi:softmax")
	require.NoError(t, err)
	obj.SetParam("num_class", "3")
	preds := make([]float32, 12)
	for i := range preds {
		preds[i] = 0.5
	}
	full, err := obj.GetGradient(preds, &d.Info, 0)
	require.NoError(t, err)
	require.Len(t, full, 12)

	for g, call := range rec.calls {
		assert.Equal(t, g, call.group)
		assert.Equal(t, int64(0), call.offset)
		assert.Equal(t, full[g*4:(g+1)*4], call.gpair)
	}
}

func TestGradientSizeMismatch(t *testing.T) {
	d := lineDataset([]float32{1, 2, 3}, []float32{0, 1, 0})
	l := newTrained(t, map[string]string{"objective": "test:oversized", "booster": "recorder"}, d)
	err := l.UpdateOneIter(0, d)
	var se *gberrors.StateError
	require.True(t, gberrors.As(err, &se))
	assert.Contains(t, se.Message, "gradient size 4")
	assert.Empty(t, l.Booster().(*recorder).calls)
}

func TestClearPeriod(t *testing.T) {
	d := lineDataset([]float32{1, 2, 3}, []float32{0, 1, 0})
	l := newTrained(t, map[string]string{"clear_period": "2", "booster": "recorder"}, d)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.UpdateOneIter(i, d))
	}
	assert.Equal(t, []int64{0, 0}, l.Booster().(*recorder).cleared)
}

func TestRootIndexForwarded(t *testing.T) {
	d := lineDataset([]float32{1, 2}, []float32{0, 1})
	d.Info.RootIndex = []uint32{0, 1}
	l := newTrained(t, map[string]string{"booster": "recorder"}, d)
	require.NoError(t, l.UpdateOneIter(0, d))
	assert.Equal(t, []uint32{0, 1}, l.Booster().(*recorder).calls[0].rootIndex)
}

func TestRootIndexOutOfRange(t *testing.T) {
	train := lineDataset([]float32{1, 2, 3}, []float32{1, 3, 5})
	l := newTrained(t, map[string]string{"eta": "0.5", "min_child_weight": "0"}, train)
	require.NoError(t, l.UpdateOneIter(0, train))

	query := lineDataset([]float32{4}, []float32{7})
	want, err := l.Predict(query, -1)
	require.NoError(t, err)

	query.Info.RootIndex = []uint32{0}
	got, err := l.Predict(query, -1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, root := range []uint32{1, 999} {
		query.Info.RootIndex = []uint32{root}
		var se *gberrors.StateError

		_, err := l.Predict(query, -1)
		require.True(t, gberrors.As(err, &se), "root %d: %v", root, err)
		assert.Contains(t, se.Message, "exceeds num_roots")
		var pe *gberrors.PanicError
		assert.False(t, gberrors.As(err, &pe))

		_, err = l.PredictRaw(query, 0)
		assert.True(t, gberrors.As(err, &se))
		_, _, err = l.Evaluate(query, "auto")
		assert.True(t, gberrors.As(err, &se))
		_, err = l.EvalResults([]*data.DMatrix{query}, []string{"query"})
		assert.True(t, gberrors.As(err, &se))
	}

	train.Info.RootIndex = []uint32{0, 3, 0}
	var se *gberrors.StateError
	assert.True(t, gberrors.As(l.UpdateOneIter(1, train), &se))
	assert.Equal(t, 1, l.Booster().NumUnits())
}

func TestEvalOneIter(t *testing.T) {
	train := lineDataset([]float32{1, 2, 3, 4}, []float32{1, 2, 3, 4})
	valid := lineDataset([]float32{1.5, 3.5}, []float32{1.5, 3.5})
	l := New()
	defer l.Close()
	require.NoError(t, l.SetParam("eval_metric", "mae"))
	require.NoError(t, l.SetCacheData([]*data.DMatrix{train, valid}))
	require.NoError(t, l.InitModel())
	require.NoError(t, l.UpdateOneIter(0, train))

	results, err := l.EvalResults([]*data.DMatrix{train, valid}, []string{"train", "valid"})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "mae", results[0].Metric)
	assert.Equal(t, "rmse", results[1].Metric)
	assert.Equal(t, "valid", results[2].Dataset)

	msg, err := l.EvalOneIter(7, []*data.DMatrix{train, valid}, []string{"train", "valid"})
	require.NoError(t, err)
	want := fmt.Sprintf("[7] train-mae:%f train-rmse:%f valid-mae:%f valid-rmse:%f",
		results[0].Value, results[1].Value, results[2].Value, results[3].Value)
	assert.Equal(t, want, msg)

	_, err = l.EvalOneIter(0, []*data.DMatrix{train}, nil)
	var de *gberrors.DimensionError
	assert.True(t, gberrors.As(err, &de))
}

func TestEvaluate(t *testing.T) {
	tl := captureLogs(t)
	d := lineDataset([]float32{1, 2, 3, 4}, []float32{1, 2, 3, 4})
	l := newTrained(t, nil, d)
	require.NoError(t, l.UpdateOneIter(0, d))

	results, err := l.EvalResults([]*data.DMatrix{d}, []string{"train"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	name, value, err := l.Evaluate(d, "auto")
	require.NoError(t, err)
	assert.Equal(t, "rmse", name)
	assert.Equal(t, results[0].Value, value)

	name, _, err = l.Evaluate(d, "mae")
	require.NoError(t, err)
	assert.Equal(t, "mae", name)
	assert.Equal(t, []string{"rmse"}, l.EvalNames())

	name, value, err = l.Evaluate(d, "nosuch")
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Zero(t, value)
	assert.True(t, tl.ContainsMessage("unknown evaluation metric 'nosuch'"))
}

func TestEndToEndResume(t *testing.T) {
	xs := []float32{1, 2, 3}
	ys := []float32{1, 2, 3}
	d := lineDataset(xs, ys)

	l := New()
	require.NoError(t, l.SetCacheData([]*data.DMatrix{d}))
	require.NoError(t, l.InitModel())

	initial, err := l.Predict(d, -1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, initial)

	require.NoError(t, l.UpdateOneIter(0, d))
	p1, err := l.Predict(d, -1)
	require.NoError(t, err)
	assert.NotEqual(t, initial, p1)

	require.NoError(t, l.UpdateOneIter(1, d))
	var buf strings.Builder
	require.NoError(t, l.SaveModel(&buf))
	saved := buf.String()

	require.NoError(t, l.UpdateOneIter(2, d))
	continued, err := l.Predict(d, -1)
	require.NoError(t, err)
	l.Close()

	resumed := New()
	defer resumed.Close()
	require.NoError(t, resumed.SetCacheData([]*data.DMatrix{d}))
	require.NoError(t, resumed.LoadModel(strings.NewReader(saved)))
	assert.Equal(t, 2, resumed.Booster().NumUnits())
	require.NoError(t, resumed.UpdateOneIter(2, d))
	got, err := resumed.Predict(d, -1)
	require.NoError(t, err)
	assert.Equal(t, continued, got)

	// Predicting a dataset that is not cached goes through the trees directly.
	fresh := lineDataset(xs, ys)
	direct, err := resumed.Predict(fresh, -1)
	require.NoError(t, err)
	assert.Equal(t, got, direct)
}

func TestPredictAfterRowChange(t *testing.T) {
	tl := captureLogs(t)
	d := lineDataset([]float32{1, 2, 3}, []float32{1, 2, 3})
	l := newTrained(t, nil, d)
	require.NoError(t, l.UpdateOneIter(0, d))
	before, err := l.Predict(d, -1)
	require.NoError(t, err)

	d.AddRow([]data.Entry{{Index: 0, Value: 3}}, 3)
	after, err := l.Predict(d, -1)
	require.NoError(t, err)
	require.Len(t, after, 4)
	assert.Equal(t, before, after[:3])
	assert.Equal(t, after[2], after[3])
	assert.True(t, tl.ContainsMessage("row count changed"))
}

func TestPredictGroups(t *testing.T) {
	d := lineDataset([]float32{1, 2, 3, 4, 5, 6}, []float32{0, 1, 2, 0, 1, 2})
	l := newTrained(t, map[string]string{"num_class": "3", "objective": "multi:softprob"}, d)
	for i := 0; i < 3; i++ {
		require.NoError(t, l.UpdateOneIter(i, d))
	}

	raw, err := l.PredictRaw(d, -1)
	require.NoError(t, err)
	require.Len(t, raw, 18)
	for g := 0; g < 3; g++ {
		one, err := l.PredictRaw(d, g)
		require.NoError(t, err)
		assert.Equal(t, raw[g*6:(g+1)*6], one)
	}

	probs, err := l.Predict(d, -1)
	require.NoError(t, err)
	require.Len(t, probs, 18)
	for i := 0; i < 6; i++ {
		var sum float32
		for g := 0; g < 3; g++ {
			sum += probs[g*6+i]
		}
		assert.InDelta(t, 1, sum, 1e-5)
	}

	_, err = l.Predict(d, 3)
	var ve *gberrors.ValueError
	assert.True(t, gberrors.As(err, &ve))
}
