package main

import (
	"os"

	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

func dumpCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runDump,
		UsageLine: "dump [conf] [key=value ...]",
		Short:     "write a text rendering of a saved model",
		Long: `
dump every tree (or the linear weights) of model_in to name_dump

	$ boost dump model_in=0020.model name_dump=dump.txt -stats
`,
		Flag: *flag.NewFlagSet("dump", flag.ExitOnError),
	}
	addCommonFlags(cmd)
	cmd.Flag.BoolVar(&dumpStats, "stats", false, "include gain and cover")
	return cmd
}

func runDump(cmd *commander.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	t, err := loadTask(args)
	if err != nil {
		return err
	}
	t.dumpStats = t.dumpStats || dumpStats
	return t.dump()
}

func (t *task) dump() error {
	lrn, _, err := t.loadModel("dump")
	if err != nil {
		return err
	}
	text, err := lrn.DumpModel(t.dumpStats)
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.nameDump, []byte(text), 0o644); err != nil {
		return gberrors.Wrap(err, "failed to write dump")
	}
	log.GetLoggerWithName("boost.dump").Info("model dumped",
		log.TreesKey, lrn.Booster().NumUnits(),
		"output", t.nameDump)
	return nil
}
