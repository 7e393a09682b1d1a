// Command boost trains gradient boosted models and applies them.
//
//	boost train [conf] data=train.txt eval[test]=test.txt num_round=20 objective=binary:logistic
//	boost pred  [conf] model_in=0020.model test:data=test.txt
//	boost eval  [conf] model_in=0020.model test:data=test.txt metric=auc
//	boost dump  [conf] model_in=0020.model name_dump=dump.txt -stats
//
// The optional conf file holds "key = value" lines; key=value arguments
// override it.
package main

import (
	"os"

	"github.com/YuminosukeSato/gboost/core/parallel"
	"github.com/YuminosukeSato/gboost/pkg/log"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

var (
	logLevel  string
	logFormat string
	threads   int
	plotPath  string
	dumpStats bool
)

func newRootCommand() *commander.Command {
	return &commander.Command{
		UsageLine: "boost <command> [conf] [key=value ...]",
		Short:     "gradient boosting trainer",
		Subcommands: []*commander.Command{
			trainCmd(),
			predCmd(),
			evalCmd(),
			dumpCmd(),
		},
		Flag: *flag.NewFlagSet("boost", flag.ExitOnError),
	}
}

// addCommonFlags registers the flags every subcommand accepts.
func addCommonFlags(cmd *commander.Command) {
	cmd.Flag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flag.StringVar(&logFormat, "log-format", "console", "log format: console or json")
	cmd.Flag.IntVar(&threads, "nthread", 0, "maximum worker goroutines; 0 = all CPUs")
}

// setup applies the common flags.
func setup() error {
	if err := log.SetupLogger(logLevel, logFormat); err != nil {
		return err
	}
	if threads > 0 {
		parallel.SetMaxWorkers(threads)
	}
	return nil
}

func main() {
	if err := newRootCommand().Dispatch(os.Args[1:]); err != nil {
		log.GetLoggerWithName("boost").Error("command failed", err)
		os.Exit(1)
	}
}
