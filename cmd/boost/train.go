package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/gboost/data"
	"github.com/YuminosukeSato/gboost/gbm"
	"github.com/YuminosukeSato/gboost/learner"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
	"github.com/YuminosukeSato/gboost/report"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

func trainCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runTrain,
		UsageLine: "train [conf] [key=value ...]",
		Short:     "train a model",
		Long: `
train a model on data and report the configured metrics on every eval[name]
dataset after each round

	$ boost train train.conf data=train.txt eval[test]=test.txt num_round=20 -plot curve.png

task keys: data, eval[name], eval_train, num_round, model_in, model_out,
model_dir, save_period. Every other key is passed to the learner. With
model_in, round numbers (and per-round model names) continue from the
rounds already in the model.
`,
		Flag: *flag.NewFlagSet("train", flag.ExitOnError),
	}
	addCommonFlags(cmd)
	cmd.Flag.StringVar(&plotPath, "plot", "", "write a learning-curve plot to this file (.png, .svg, .pdf)")
	return cmd
}

func runTrain(cmd *commander.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	t, err := loadTask(args)
	if err != nil {
		return err
	}
	return t.train(os.Stderr, plotPath)
}

// newLearner returns a learner configured with the task's learner keys.
func (t *task) newLearner() (*learner.Learner, error) {
	lrn := learner.New()
	for _, p := range t.params {
		if err := lrn.SetParam(p.key, p.value); err != nil {
			return nil, err
		}
	}
	return lrn, nil
}

// train runs the boosting rounds, writing one evaluation line per round
// to w. A non-empty plot path receives the learning curves.
func (t *task) train(w io.Writer, plot string) error {
	logger := log.GetLoggerWithName("boost.train")
	if t.data == "" {
		return gberrors.NewValueError("train", "data is required")
	}
	dtrain, err := data.Load(t.data)
	if err != nil {
		return err
	}
	var (
		mats  []*data.DMatrix
		names []string
	)
	for _, e := range t.evals {
		d, err := data.Load(e.path)
		if err != nil {
			return err
		}
		mats = append(mats, d)
		names = append(names, e.name)
	}
	if t.evalTrain {
		mats = append(mats, dtrain)
		names = append(names, "train")
	}

	lrn, err := t.newLearner()
	if err != nil {
		return err
	}
	defer lrn.Close()
	if err := lrn.SetCacheData(append([]*data.DMatrix{dtrain}, mats...)); err != nil {
		return err
	}
	if t.modelIn != "" {
		err = lrn.LoadFile(t.modelIn)
	} else {
		err = lrn.InitModel()
	}
	if err != nil {
		return err
	}

	// A resumed model continues the round numbering of the run that saved it.
	first := gbm.Rounds(lrn.Booster())
	last := first + t.numRound
	rec := report.NewRecorder()
	start := time.Now()
	for i := first; i < last; i++ {
		if err := lrn.UpdateOneIter(i, dtrain); err != nil {
			return gberrors.Wrapf(err, "round %d", i)
		}
		if len(mats) > 0 {
			results, err := lrn.EvalResults(mats, names)
			if err != nil {
				return err
			}
			rec.Add(i, results)
			fmt.Fprintln(w, learner.FormatEval(i, results))
		}
		if t.savePeriod > 0 && (i+1)%t.savePeriod == 0 {
			if err := lrn.SaveFile(t.roundModelPath(i + 1)); err != nil {
				return err
			}
		}
	}

	out := t.modelOut
	if out == "" && (t.savePeriod == 0 || last%t.savePeriod != 0) {
		out = t.roundModelPath(last)
	}
	if out != "" {
		if err := lrn.SaveFile(out); err != nil {
			return err
		}
	}
	if plot != "" {
		if err := rec.SavePlot(plot, "learning curve"); err != nil {
			return err
		}
	}
	logger.Info("training finished",
		log.IterationKey, last,
		log.SamplesKey, dtrain.NumRow(),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

func (t *task) roundModelPath(round int) string {
	return filepath.Join(t.modelDir, fmt.Sprintf("%04d.model", round))
}
