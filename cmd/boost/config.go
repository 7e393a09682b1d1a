package main

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

type kv struct {
	key, value string
}

type namedPath struct {
	name, path string
}

// task holds the settings of one CLI invocation. Keys it does not own are
// kept in params, in order, and passed to the learner.
type task struct {
	params []kv

	data       string
	evals      []namedPath
	evalTrain  bool
	test       string
	numRound   int
	modelIn    string
	modelOut   string
	modelDir   string
	savePeriod int
	namePred   string
	nameDump   string
	dumpStats  bool
	predMargin bool
	metric     string
}

func newTask() *task {
	return &task{
		numRound: 10,
		modelDir: ".",
		namePred: "pred.txt",
		nameDump: "dump.txt",
		metric:   "auto",
	}
}

// set applies one key. Task keys are consumed; everything else goes to
// the learner.
func (t *task) set(key, value string) error {
	var err error
	switch {
	case key == "data":
		t.data = value
	case strings.HasPrefix(key, "eval[") && strings.HasSuffix(key, "]"):
		t.evals = append(t.evals, namedPath{name: key[len("eval[") : len(key)-1], path: value})
	case key == "eval_train":
		t.evalTrain, err = strconv.ParseBool(value)
	case key == "test:data":
		t.test = value
	case key == "num_round":
		t.numRound, err = strconv.Atoi(value)
	case key == "model_in":
		t.modelIn = value
	case key == "model_out":
		t.modelOut = value
	case key == "model_dir":
		t.modelDir = value
	case key == "save_period":
		t.savePeriod, err = strconv.Atoi(value)
	case key == "name_pred":
		t.namePred = value
	case key == "name_dump":
		t.nameDump = value
	case key == "dump_stats":
		t.dumpStats, err = strconv.ParseBool(value)
	case key == "pred_margin":
		t.predMargin, err = strconv.ParseBool(value)
	case key == "metric":
		t.metric = value
	default:
		t.params = append(t.params, kv{key, value})
	}
	if err != nil {
		return gberrors.Wrapf(err, "invalid value %q for %s", value, key)
	}
	return nil
}

// loadTask builds a task from an optional configuration file followed by
// key=value arguments. The first argument is taken as the file when it
// contains no '='. Arguments override the file because they are applied
// after it.
func loadTask(args []string) (*task, error) {
	t := newTask()
	if len(args) > 0 && !strings.Contains(args[0], "=") {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, gberrors.Wrap(err, "failed to open config file")
		}
		pairs, err := parseConfig(f)
		f.Close()
		if err != nil {
			return nil, gberrors.Wrapf(err, "config file %s", args[0])
		}
		for _, p := range pairs {
			if err := t.set(p.key, p.value); err != nil {
				return nil, err
			}
		}
		args = args[1:]
	}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, gberrors.Newf("argument %q is not key=value", arg)
		}
		if err := t.set(strings.TrimSpace(k), unquote(strings.TrimSpace(v))); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// parseConfig reads "key = value" lines. '#' starts a comment and values
// may be double quoted.
func parseConfig(r io.Reader) ([]kv, error) {
	var pairs []kv
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, gberrors.Newf("line %d: expected key = value, got %q", lineNo, line)
		}
		pairs = append(pairs, kv{k, unquote(strings.TrimSpace(v))})
	}
	if err := sc.Err(); err != nil {
		return nil, gberrors.Wrap(err, "failed to read config")
	}
	return pairs, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

