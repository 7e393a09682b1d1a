package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/YuminosukeSato/gboost/data"
	"github.com/YuminosukeSato/gboost/learner"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

func predCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runPred,
		UsageLine: "pred [conf] [key=value ...]",
		Short:     "predict with a saved model",
		Long: `
predict test:data with model_in and write one prediction per line to name_pred

	$ boost pred model_in=0020.model test:data=test.txt name_pred=pred.txt

pred_margin=1 writes untransformed margins.
`,
		Flag: *flag.NewFlagSet("pred", flag.ExitOnError),
	}
	addCommonFlags(cmd)
	return cmd
}

func runPred(cmd *commander.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	t, err := loadTask(args)
	if err != nil {
		return err
	}
	return t.predict()
}

// loadModel loads model_in into a learner built from the task's keys,
// along with test:data.
func (t *task) loadModel(op string) (*learner.Learner, *data.DMatrix, error) {
	if t.modelIn == "" {
		return nil, nil, gberrors.NewValueError(op, "model_in is required")
	}
	lrn, err := t.newLearner()
	if err != nil {
		return nil, nil, err
	}
	if err := lrn.LoadFile(t.modelIn); err != nil {
		return nil, nil, err
	}
	if t.test == "" {
		return lrn, nil, nil
	}
	dtest, err := data.Load(t.test)
	if err != nil {
		return nil, nil, err
	}
	return lrn, dtest, nil
}

func (t *task) predict() (err error) {
	lrn, dtest, err := t.loadModel("pred")
	if err != nil {
		return err
	}
	if dtest == nil {
		return gberrors.NewValueError("pred", "test:data is required")
	}
	var preds []float32
	if t.predMargin {
		preds, err = lrn.PredictRaw(dtest, -1)
	} else {
		preds, err = lrn.Predict(dtest, -1)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(t.namePred)
	if err != nil {
		return gberrors.Wrap(err, "failed to create prediction file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = gberrors.Wrap(cerr, "failed to close prediction file")
		}
	}()
	bw := bufio.NewWriter(f)
	for _, p := range preds {
		fmt.Fprintf(bw, "%g\n", p)
	}
	if err := bw.Flush(); err != nil {
		return gberrors.Wrap(err, "failed to write predictions")
	}
	log.GetLoggerWithName("boost.pred").Info("predictions written",
		log.SamplesKey, dtest.NumRow(),
		"output", t.namePred)
	return nil
}
