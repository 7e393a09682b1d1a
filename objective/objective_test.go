package objective

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			obj, err := Create(name)
			require.NoError(t, err)
			assert.Equal(t, name, obj.Name())
			assert.NotEmpty(t, obj.DefaultEvalMetric())
		})
	}

	_, err := Create("reg:nonsense")
	var ce *gberrors.ConfigurationError
	require.True(t, gberrors.As(err, &ce))
	assert.Equal(t, "objective", ce.Kind)
	assert.Equal(t, "reg:nonsense", ce.Name)
}

func TestDefaultEvalMetric(t *testing.T) {
	tests := map[string]string{
		"reg:linear":      "rmse",
		"reg:logistic":    "rmse",
		"binary:logistic": "error",
		"binary:logitraw": "auc",
		"multi:softmax":   "merror",
		"multi:softprob":  "mlogloss",
		"rank:pairwise":   "map",
	}
	for name, metric := range tests {
		obj, err := Create(name)
		require.NoError(t, err)
		assert.Equal(t, metric, obj.DefaultEvalMetric(), name)
	}
}

func TestIsMultiClass(t *testing.T) {
	assert.True(t, IsMultiClass("multi:softmax"))
	assert.True(t, IsMultiClass("multi:softprob"))
	assert.False(t, IsMultiClass("binary:logistic"))
}

func TestRegisterCustomObjective(t *testing.T) {
	Register("test:linear-copy", func() Objective { return newRegLoss("test:linear-copy", lossLinearSquare) })
	obj, err := Create("test:linear-copy")
	require.NoError(t, err)
	assert.Equal(t, "rmse", obj.DefaultEvalMetric())
	assert.Contains(t, Names(), "test:linear-copy")
}

func TestLinearGradient(t *testing.T) {
	obj, _ := Create("reg:linear")
	info := &data.Info{Labels: []float32{1, 2, 3}, Weights: []float32{1, 2, 1}}

	gpair, err := obj.GetGradient([]float32{0.5, 0.5, 0.5}, info, 0)
	require.NoError(t, err)
	assert.Equal(t, []data.GradPair{
		{Grad: -0.5, Hess: 1},
		{Grad: -3, Hess: 2},
		{Grad: -2.5, Hess: 1},
	}, gpair)

	_, err = obj.GetGradient([]float32{0.5}, info, 0)
	var se *gberrors.StateError
	assert.True(t, gberrors.As(err, &se))

	margin, err := obj.ProbToMargin(0.5)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), margin)
}

func TestLogisticGradient(t *testing.T) {
	obj, _ := Create("binary:logistic")
	info := &data.Info{Labels: []float32{0, 1}}

	gpair, err := obj.GetGradient([]float32{0, 0}, info, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, gpair[0].Grad, 1e-6)
	assert.InDelta(t, -0.5, gpair[1].Grad, 1e-6)
	assert.InDelta(t, 0.25, gpair[0].Hess, 1e-6)

	_, err = obj.GetGradient([]float32{0, 0}, &data.Info{Labels: []float32{0, 2}}, 0)
	var ve *gberrors.ValueError
	assert.True(t, gberrors.As(err, &ve))
}

func TestScalePosWeight(t *testing.T) {
	obj, _ := Create("binary:logistic")
	obj.SetParam("scale_pos_weight", "3")
	gpair, err := obj.GetGradient([]float32{0, 0}, &data.Info{Labels: []float32{0, 1}}, 0)
	require.NoError(t, err)
	assert.InDelta(t, -1.5, gpair[1].Grad, 1e-6)
	assert.InDelta(t, 0.5, gpair[0].Grad, 1e-6)
}

func TestLogisticTransforms(t *testing.T) {
	obj, _ := Create("binary:logistic")
	out := obj.PredTransform([]float32{0, float32(math.Log(3))}, 2)
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 0.75, out[1], 1e-6)

	raw, _ := Create("binary:logitraw")
	assert.Equal(t, []float32{0, 2}, raw.PredTransform([]float32{0, 2}, 2))
}

func TestProbToMargin(t *testing.T) {
	for _, name := range []string{"reg:logistic", "binary:logistic", "binary:logitraw"} {
		obj, _ := Create(name)
		m, err := obj.ProbToMargin(0.5)
		require.NoError(t, err)
		assert.InDelta(t, 0, m, 1e-6)

		m, err = obj.ProbToMargin(0.75)
		require.NoError(t, err)
		assert.InDelta(t, math.Log(3), m, 1e-5)

		for _, bad := range []float32{0, 1, -0.5, 2} {
			_, err := obj.ProbToMargin(bad)
			var se *gberrors.StateError
			assert.Truef(t, gberrors.As(err, &se), "%s base=%g", name, bad)
		}
	}
}

func TestSoftmaxGradientLayout(t *testing.T) {
	obj, _ := Create("multi:softprob")
	obj.SetParam("num_class", "3")
	info := &data.Info{Labels: []float32{0, 2}}
	preds := make([]float32, 6)

	gpair, err := obj.GetGradient(preds, info, 0)
	require.NoError(t, err)
	require.Len(t, gpair, 6)

	third := float32(1.0 / 3.0)
	// group-contiguous: [g*nrow + i]
	assert.InDelta(t, third-1, gpair[0*2+0].Grad, 1e-6)
	assert.InDelta(t, third, gpair[1*2+0].Grad, 1e-6)
	assert.InDelta(t, third, gpair[0*2+1].Grad, 1e-6)
	assert.InDelta(t, third-1, gpair[2*2+1].Grad, 1e-6)
	assert.InDelta(t, 2*third*(1-third), gpair[1*2+1].Hess, 1e-6)
}

func TestSoftmaxRequiresNumClass(t *testing.T) {
	obj, _ := Create("multi:softmax")
	_, err := obj.GetGradient([]float32{0}, &data.Info{Labels: []float32{0}}, 0)
	var se *gberrors.StateError
	assert.True(t, gberrors.As(err, &se))

	obj.SetParam("num_class", "2")
	_, err = obj.GetGradient([]float32{0, 0}, &data.Info{Labels: []float32{5}}, 0)
	var ve *gberrors.ValueError
	assert.True(t, gberrors.As(err, &ve))
}

func TestSoftmaxTransforms(t *testing.T) {
	// rows: r0 favours class 2, r1 favours class 0
	preds := []float32{
		0, 3, // group 0
		1, 1, // group 1
		2, 0, // group 2
	}

	softmax, _ := Create("multi:softmax")
	softmax.SetParam("num_class", "3")
	assert.Equal(t, []float32{2, 0}, softmax.PredTransform(append([]float32(nil), preds...), 2))
	assert.Equal(t, []float32{2, 0}, softmax.EvalTransform(append([]float32(nil), preds...), 2))

	softprob, _ := Create("multi:softprob")
	softprob.SetParam("num_class", "3")
	prob := softprob.PredTransform(append([]float32(nil), preds...), 2)
	require.Len(t, prob, 6)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1, prob[i]+prob[2+i]+prob[4+i], 1e-6)
	}
	assert.Greater(t, prob[4], prob[0])

	// A single requested group passes through.
	assert.Equal(t, []float32{0, 3}, softprob.PredTransform([]float32{0, 3}, 2))
}

func TestPairwiseGradient(t *testing.T) {
	obj, _ := Create("rank:pairwise")
	info := &data.Info{
		Labels:   []float32{1, 0, 0, 1},
		GroupPtr: []uint32{0, 2, 4},
	}
	gpair, err := obj.GetGradient([]float32{0, 0, 0, 0}, info, 0)
	require.NoError(t, err)

	// one pair per group, p = 0.5
	assert.InDelta(t, -0.5, gpair[0].Grad, 1e-6)
	assert.InDelta(t, 0.5, gpair[1].Grad, 1e-6)
	assert.InDelta(t, 0.5, gpair[2].Grad, 1e-6)
	assert.InDelta(t, -0.5, gpair[3].Grad, 1e-6)
	assert.InDelta(t, 0.5, gpair[0].Hess, 1e-6)

	info.GroupPtr = []uint32{0, 3}
	_, err = obj.GetGradient([]float32{0, 0, 0, 0}, info, 0)
	assert.Error(t, err)
}
