package main

import (
	"fmt"
	"io"
	"os"

	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

func evalCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runEval,
		UsageLine: "eval [conf] [key=value ...]",
		Short:     "compute one metric of a saved model",
		Long: `
evaluate model_in on test:data with a single metric; metric=auto uses the
objective's default

	$ boost eval model_in=0020.model test:data=test.txt metric=auc
`,
		Flag: *flag.NewFlagSet("eval", flag.ExitOnError),
	}
	addCommonFlags(cmd)
	return cmd
}

func runEval(cmd *commander.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	t, err := loadTask(args)
	if err != nil {
		return err
	}
	return t.evaluate(os.Stdout)
}

// evaluate writes "name:value" to w.
func (t *task) evaluate(w io.Writer) error {
	lrn, dtest, err := t.loadModel("eval")
	if err != nil {
		return err
	}
	if dtest == nil {
		return gberrors.NewValueError("eval", "test:data is required")
	}
	name, value, err := lrn.Evaluate(dtest, t.metric)
	if err != nil {
		return err
	}
	if name == "" {
		return gberrors.Newf("unknown metric %q", t.metric)
	}
	_, err = fmt.Fprintf(w, "%s:%f\n", name, value)
	return err
}
