// Package learner drives gradient boosting: it owns the objective, the
// boosted ensemble and the evaluation metrics, keeps a prediction cache for
// the datasets it trains on and reads and writes the model format.
//
// A typical training loop:
//
//	lrn := learner.New()
//	lrn.SetParam("objective", "binary:logistic")
//	lrn.SetParam("eta", "0.3")
//	if err := lrn.SetCacheData([]*data.DMatrix{train, valid}); err != nil { ... }
//	if err := lrn.InitModel(); err != nil { ... }
//	for i := 0; i < rounds; i++ {
//	    lrn.UpdateOneIter(i, train)
//	    msg, _ := lrn.EvalOneIter(i, []*data.DMatrix{train, valid}, []string{"train", "valid"})
//	}
//
// A Learner is not safe for concurrent use.
package learner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gboost/core/parallel"
	"github.com/YuminosukeSato/gboost/data"
	"github.com/YuminosukeSato/gboost/gbm"
	"github.com/YuminosukeSato/gboost/metrics"
	"github.com/YuminosukeSato/gboost/objective"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
)

// predictThreshold is the row count below which predictions run on the
// calling goroutine.
const predictThreshold = 256

// Learner coordinates one boosting model.
type Learner struct {
	header ModelHeader
	cfg    ConfigStore
	cache  *PredictionCache
	evals  metrics.EvalSet

	nameObj string
	nameGbm string
	obj     objective.Objective
	gbm     gbm.Booster

	silent int
	logger log.Logger

	// preds is scratch space for training predictions.
	preds []float32
}

// New returns a learner with default parameters: objective reg:linear,
// booster gbtree and base_score 0.5.
func New() *Learner {
	return &Learner{
		header:  DefaultHeader(),
		cache:   NewPredictionCache(),
		nameObj: objective.DefaultName,
		nameGbm: gbm.DefaultName,
		logger:  log.GetLoggerWithName("learner"),
	}
}

// SetParam applies one configuration pair. Every call is recorded and
// replayed into the objective and booster when they are built. Keys the
// learner does not own are forwarded verbatim.
//
// objective, booster and the header keys (base_score, num_class,
// bst:num_feature, clear_period) only take effect before the model is
// initialized or loaded.
func (l *Learner) SetParam(name, value string) error {
	switch name {
	case "silent":
		if v, err := strconv.Atoi(value); err == nil {
			l.silent = v
		}
	case "eval_metric":
		if err := l.evals.AddEval(value); err != nil {
			l.cfg.Append(name, value)
			return err
		}
	case "nthread":
		if v, err := strconv.Atoi(value); err == nil {
			parallel.SetMaxWorkers(v)
		}
	}
	if l.gbm == nil {
		switch name {
		case "objective":
			l.nameObj = value
		case "booster":
			l.nameGbm = value
		default:
			l.header.SetParam(name, value)
		}
	} else {
		l.obj.SetParam(name, value)
		l.gbm.SetParam(name, value)
	}
	l.cfg.Append(name, value)
	return nil
}

// Header returns a copy of the model header.
func (l *Learner) Header() ModelHeader { return l.header }

// Config returns the recorded configuration.
func (l *Learner) Config() []ConfigPair { return l.cfg.Pairs() }

// Cache returns the prediction cache.
func (l *Learner) Cache() *PredictionCache { return l.cache }

// Objective returns the live objective, or nil before initialization.
func (l *Learner) Objective() objective.Objective { return l.obj }

// Booster returns the live booster, or nil before initialization.
func (l *Learner) Booster() gbm.Booster { return l.gbm }

// EvalNames returns the configured metric names in registration order.
func (l *Learner) EvalNames() []string { return l.evals.Names() }

// SetCacheData registers the datasets whose predictions are cached across
// iterations. It must be called once, before InitModel or LoadModel.
func (l *Learner) SetCacheData(datasets []*data.DMatrix) error {
	handles, err := l.cache.Register(datasets)
	if err != nil {
		return err
	}
	numCol := 0
	for _, h := range handles {
		numCol = max(numCol, h.Dataset.NumCol())
	}
	if uint32(numCol) > l.header.NumFeature {
		if err := l.SetParam("bst:num_feature", strconv.Itoa(numCol)); err != nil {
			return err
		}
	}
	size := l.cache.BufferSize()
	if err := l.SetParam("num_pbuffer", strconv.FormatInt(size, 10)); err != nil {
		return err
	}
	l.info("prediction cache registered",
		log.OperationKey, log.OperationCache,
		log.BufferSizeKey, size,
		"cache.datasets", len(handles))
	return nil
}

// Close releases the datasets registered by this learner so another
// learner can cache them without a warning.
func (l *Learner) Close() {
	l.cache.Release()
}

// InitModel builds the objective and booster and starts an empty model.
// base_score is converted to margin space here.
func (l *Learner) InitModel() (err error) {
	defer gberrors.Recover(&err, "Learner.InitModel")
	if err := l.initObjGBM(); err != nil {
		return err
	}
	margin, err := l.obj.ProbToMargin(l.header.BaseScore)
	if err != nil {
		return err
	}
	l.header.BaseScore = margin
	if err := l.gbm.InitModel(); err != nil {
		return err
	}
	l.info("model initialized",
		log.OperationKey, log.OperationInit,
		log.ObjectiveKey, l.nameObj,
		log.BoosterKey, l.nameGbm,
		log.BaseScoreKey, l.header.BaseScore,
		log.NumGroupKey, l.gbm.NumGroup())
	return nil
}

// initObjGBM builds the objective and booster once. A positive num_class
// switches a non multi-class objective to multi:softmax.
func (l *Learner) initObjGBM() error {
	if l.obj != nil {
		return nil
	}
	if l.header.NumClass > 0 && !objective.IsMultiClass(l.nameObj) {
		l.info("auto select objective=multi:softmax to support multi-class classification",
			log.ObjectiveKey, l.nameObj)
		l.nameObj = "multi:softmax"
	}
	return l.createObjGBM()
}

// createObjGBM builds the objective and booster from the current names and
// replays the recorded configuration into both.
func (l *Learner) createObjGBM() error {
	obj, booster, err := l.buildObjGBM(l.nameObj, l.nameGbm, l.header.NumClass)
	if err != nil {
		return err
	}
	return l.commitObjGBM(obj, booster)
}

// buildObjGBM constructs a configured objective and booster without
// touching the learner.
func (l *Learner) buildObjGBM(nameObj, nameGbm string, numClass int32) (objective.Objective, gbm.Booster, error) {
	obj, err := objective.Create(nameObj)
	if err != nil {
		return nil, nil, err
	}
	booster, err := gbm.Create(nameGbm)
	if err != nil {
		return nil, nil, err
	}
	if numClass > 0 {
		nc := strconv.Itoa(int(numClass))
		obj.SetParam("num_class", nc)
		booster.SetParam("num_class", nc)
	}
	l.cfg.Replay(func(k, v string) {
		obj.SetParam(k, v)
		booster.SetParam(k, v)
	})
	return obj, booster, nil
}

// commitObjGBM installs obj and booster and registers the objective's
// default metric.
func (l *Learner) commitObjGBM(obj objective.Objective, booster gbm.Booster) error {
	if err := l.evals.AddEval(obj.DefaultEvalMetric()); err != nil {
		return err
	}
	l.obj, l.gbm = obj, booster
	return nil
}

func (l *Learner) checkInit(method string) error {
	if l.gbm == nil {
		return gberrors.NewNotFittedError("Learner", method)
	}
	return nil
}

// UpdateOneIter runs one boosting iteration on train.
func (l *Learner) UpdateOneIter(iter int, train *data.DMatrix) (err error) {
	defer gberrors.Recover(&err, "Learner.UpdateOneIter")
	if err := l.checkInit("UpdateOneIter"); err != nil {
		return err
	}
	if err := l.checkRoots(train); err != nil {
		return err
	}
	offset := l.cache.Lookup(train)
	l.preds = l.predictRaw(l.preds, train, offset, -1)
	gpair, err := l.obj.GetGradient(l.preds, &train.Info, iter)
	if err != nil {
		return err
	}
	if err := l.boost(gpair, train, train.Info.RootIndex, offset); err != nil {
		return err
	}
	if cp := int(l.header.ClearPeriod); cp > 0 && (iter+1)%cp == 0 && offset >= 0 {
		l.gbm.ClearBuffer(offset, train.NumRow())
		l.logger.Debug("prediction buffer cleared",
			log.IterationKey, iter,
			log.BufferOffsetKey, offset)
	}
	l.logger.Debug("iteration finished",
		log.OperationKey, log.OperationBoost,
		log.IterationKey, iter,
		log.SamplesKey, train.NumRow(),
		log.TreesKey, l.gbm.NumUnits())
	return nil
}

// boost feeds gpair to the booster. A gradient of one pair per row boosts
// group 0; rows*ngroup pairs are split into contiguous per-group slices
// boosted in group order.
func (l *Learner) boost(gpair []data.GradPair, train *data.DMatrix, rootIndex []uint32, offset int64) error {
	nrow := train.NumRow()
	ngroup := l.gbm.NumGroup()
	switch len(gpair) {
	case nrow:
		return l.gbm.DoBoost(gpair, train, rootIndex, 0, offset)
	case nrow * ngroup:
		tmp := make([]data.GradPair, nrow)
		for g := 0; g < ngroup; g++ {
			copy(tmp, gpair[g*nrow:(g+1)*nrow])
			if err := l.gbm.DoBoost(tmp, train, rootIndex, g, offset); err != nil {
				return err
			}
		}
		return nil
	default:
		return gberrors.NewStateErrorf("Learner.UpdateOneIter",
			"gradient size %d does not match %d rows x %d groups", len(gpair), nrow, ngroup)
	}
}

// EvalOneIter evaluates every configured metric on each dataset and
// returns a line such as "[3] train-rmse:0.500000 valid-rmse:0.700000".
func (l *Learner) EvalOneIter(iter int, evals []*data.DMatrix, names []string) (string, error) {
	results, err := l.EvalResults(evals, names)
	if err != nil {
		return "", err
	}
	return FormatEval(iter, results), nil
}

// FormatEval renders results in the EvalOneIter layout.
func FormatEval(iter int, results []metrics.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d]", iter)
	for _, r := range results {
		sb.WriteString(r.String())
	}
	return sb.String()
}

// EvalResults evaluates every configured metric on each dataset, in
// dataset order then metric registration order.
func (l *Learner) EvalResults(evals []*data.DMatrix, names []string) (res []metrics.Result, err error) {
	defer gberrors.Recover(&err, "Learner.EvalResults")
	if err := l.checkInit("EvalOneIter"); err != nil {
		return nil, err
	}
	if len(evals) != len(names) {
		return nil, gberrors.NewDimensionError("Learner.EvalOneIter", len(evals), len(names), 0)
	}
	for i, d := range evals {
		if err := l.checkRoots(d); err != nil {
			return nil, err
		}
		preds := l.predictRaw(nil, d, l.cache.Lookup(d), -1)
		preds = l.obj.EvalTransform(preds, d.NumRow())
		rs, err := l.evals.Results(names[i], preds, &d.Info)
		if err != nil {
			return nil, gberrors.Wrapf(err, "evaluating %s", names[i])
		}
		res = append(res, rs...)
	}
	return res, nil
}

// Evaluate computes a single metric on d without touching the configured
// metric set. "auto" selects the objective's default metric. An unknown
// metric emits an UnknownMetricWarning and returns an empty name.
func (l *Learner) Evaluate(d *data.DMatrix, metric string) (name string, value float32, err error) {
	defer gberrors.Recover(&err, "Learner.Evaluate")
	if err := l.checkInit("Evaluate"); err != nil {
		return "", 0, err
	}
	if metric == "auto" {
		metric = l.obj.DefaultEvalMetric()
	}
	ev, err := metrics.Create(metric)
	if err != nil {
		var cfgErr *gberrors.ConfigurationError
		if gberrors.As(err, &cfgErr) {
			gberrors.Warn(gberrors.NewUnknownMetricWarning(metric))
			return "", 0, nil
		}
		return "", 0, err
	}
	if err := l.checkRoots(d); err != nil {
		return "", 0, err
	}
	preds := l.predictRaw(nil, d, l.cache.Lookup(d), -1)
	preds = l.obj.EvalTransform(preds, d.NumRow())
	value, err = ev.Eval(preds, &d.Info)
	if err != nil {
		return "", 0, err
	}
	return ev.Name(), value, nil
}

// Predict returns transformed predictions for d. group selects one output
// group; -1 predicts all groups, laid out group-contiguously.
func (l *Learner) Predict(d *data.DMatrix, group int) (preds []float32, err error) {
	defer gberrors.Recover(&err, "Learner.Predict")
	if err := l.checkInit("Predict"); err != nil {
		return nil, err
	}
	if group >= l.gbm.NumGroup() {
		return nil, gberrors.NewValueError("Learner.Predict",
			fmt.Sprintf("group %d out of range [0,%d)", group, l.gbm.NumGroup()))
	}
	if err := l.checkRoots(d); err != nil {
		return nil, err
	}
	preds = l.predictRaw(nil, d, l.cache.Lookup(d), group)
	return l.obj.PredTransform(preds, d.NumRow()), nil
}

// PredictRaw returns margin-space predictions for d, group-contiguous.
func (l *Learner) PredictRaw(d *data.DMatrix, group int) (preds []float32, err error) {
	defer gberrors.Recover(&err, "Learner.PredictRaw")
	if err := l.checkInit("PredictRaw"); err != nil {
		return nil, err
	}
	if err := l.checkRoots(d); err != nil {
		return nil, err
	}
	return l.predictRaw(nil, d, l.cache.Lookup(d), group), nil
}

// rootChecker is implemented by boosters that grow more than one root per
// tree.
type rootChecker interface {
	CheckRoots(rootIndex []uint32, nrow int) error
}

// checkRoots rejects a root index the booster cannot serve.
func (l *Learner) checkRoots(d *data.DMatrix) error {
	rc, ok := l.gbm.(rootChecker)
	if !ok {
		return nil
	}
	return rc.CheckRoots(d.Info.RootIndex, d.NumRow())
}

// predictRaw fills dst, resized as needed, with base score plus booster
// output. group < 0 predicts every group.
func (l *Learner) predictRaw(dst []float32, d *data.DMatrix, offset int64, group int) []float32 {
	nrow := d.NumRow()
	if group >= 0 {
		dst = resize(dst, nrow)
		l.predictGroup(dst, d, offset, group)
		return dst
	}
	ngroup := l.gbm.NumGroup()
	dst = resize(dst, nrow*ngroup)
	for g := 0; g < ngroup; g++ {
		l.predictGroup(dst[g*nrow:(g+1)*nrow], d, offset, g)
	}
	return dst
}

func (l *Learner) predictGroup(dst []float32, d *data.DMatrix, offset int64, group int) {
	base := l.header.BaseScore
	parallel.ParallelizeWithThreshold(len(dst), predictThreshold, func(start, end int) {
		for j := start; j < end; j++ {
			dst[j] = base + l.gbm.Predict(d, j, offset, d.Info.GetRoot(j), group)
		}
	})
}

func (l *Learner) info(msg string, fields ...any) {
	if l.silent != 0 {
		return
	}
	l.logger.Info(msg, fields...)
}

func resize(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	return s[:n]
}
