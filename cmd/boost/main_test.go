package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	conf := `
# general
booster = gbtree
objective = "binary:logistic"   # inline comment
eval[test] = test.txt

num_round=5
`
	pairs, err := parseConfig(strings.NewReader(conf))
	require.NoError(t, err)
	assert.Equal(t, []kv{
		{"booster", "gbtree"},
		{"objective", "binary:logistic"},
		{"eval[test]", "test.txt"},
		{"num_round", "5"},
	}, pairs)

	_, err = parseConfig(strings.NewReader("just a line\n"))
	assert.Error(t, err)
	_, err = parseConfig(strings.NewReader(" = value\n"))
	assert.Error(t, err)
}

func TestLoadTask(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "train.conf")
	require.NoError(t, os.WriteFile(conf, []byte("num_round = 5\neta = 0.1\ndata = a.txt\neval[valid] = b.txt\n"), 0o644))

	task, err := loadTask([]string{conf, "num_round=7", "eta=0.3", "eval_train=1", "save_period=2"})
	require.NoError(t, err)
	assert.Equal(t, 7, task.numRound)
	assert.Equal(t, "a.txt", task.data)
	assert.Equal(t, []namedPath{{"valid", "b.txt"}}, task.evals)
	assert.True(t, task.evalTrain)
	assert.Equal(t, 2, task.savePeriod)
	assert.Equal(t, []kv{{"eta", "0.1"}, {"eta", "0.3"}}, task.params)

	_, err = loadTask([]string{"num_round=x"})
	assert.Error(t, err)
	_, err = loadTask([]string{"num_round=1", "stray"})
	assert.Error(t, err)
	_, err = loadTask([]string{filepath.Join(dir, "missing.conf")})
	assert.Error(t, err)
}

// writeLibSVM writes rows "y 0:x" with y = 2x + 1.
func writeLibSVM(t *testing.T, path string, xs []float64) {
	t.Helper()
	var sb strings.Builder
	for _, x := range xs {
		fmt.Fprintf(&sb, "%g 0:%g\n", 2*x+1, x)
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

func TestTrainPredEvalDump(t *testing.T) {
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.txt")
	testPath := filepath.Join(dir, "test.txt")
	var xs []float64
	for i := 0; i < 30; i++ {
		xs = append(xs, float64(i))
	}
	writeLibSVM(t, trainPath, xs)
	writeLibSVM(t, testPath, []float64{2.5, 10.5, 20.5, 28.5})

	task, err := loadTask([]string{
		"data=" + trainPath,
		"eval[test]=" + testPath,
		"eval_train=1",
		"num_round=3",
		"save_period=2",
		"model_dir=" + dir,
		"eta=0.5",
		"silent=1",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	plot := filepath.Join(dir, "curve.png")
	require.NoError(t, task.train(&out, plot))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("[%d] test-rmse:", i)), line)
		assert.Contains(t, line, " train-rmse:")
	}
	for _, name := range []string{"0002.model", "0003.model", "curve.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	model := filepath.Join(dir, "0003.model")

	t.Run("pred", func(t *testing.T) {
		predPath := filepath.Join(dir, "pred.txt")
		task, err := loadTask([]string{"model_in=" + model, "test:data=" + testPath, "name_pred=" + predPath})
		require.NoError(t, err)
		require.NoError(t, task.predict())
		raw, err := os.ReadFile(predPath)
		require.NoError(t, err)
		assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 4)

		task.test = ""
		assert.Error(t, task.predict())
	})

	t.Run("eval", func(t *testing.T) {
		task, err := loadTask([]string{"model_in=" + model, "test:data=" + testPath})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, task.evaluate(&buf))
		assert.True(t, strings.HasPrefix(buf.String(), "rmse:"))

		task.metric = "nosuch"
		assert.Error(t, task.evaluate(&buf))
	})

	t.Run("dump", func(t *testing.T) {
		dumpPath := filepath.Join(dir, "dump.txt")
		task, err := loadTask([]string{"model_in=" + model, "name_dump=" + dumpPath, "dump_stats=1"})
		require.NoError(t, err)
		require.NoError(t, task.dump())
		raw, err := os.ReadFile(dumpPath)
		require.NoError(t, err)
		assert.Equal(t, 3, strings.Count(string(raw), "booster["))
		assert.Contains(t, string(raw), "cover=")
	})

	t.Run("continue training", func(t *testing.T) {
		out := filepath.Join(dir, "more.model")
		task, err := loadTask([]string{
			"data=" + trainPath, "model_in=" + model, "model_out=" + out, "num_round=2", "silent=1",
		})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, task.train(&buf, ""))
		assert.Empty(t, buf.String())

		dumpTask := newTask()
		dumpTask.modelIn = out
		dumpTask.nameDump = filepath.Join(dir, "more.txt")
		require.NoError(t, dumpTask.dump())
		raw, err := os.ReadFile(dumpTask.nameDump)
		require.NoError(t, err)
		assert.Equal(t, 5, strings.Count(string(raw), "booster["))
	})

	t.Run("resumed round numbering", func(t *testing.T) {
		sub := filepath.Join(dir, "resume")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		task, err := loadTask([]string{
			"data=" + trainPath, "eval[test]=" + testPath, "model_in=" + model,
			"model_dir=" + sub, "num_round=2", "save_period=1", "silent=1",
		})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, task.train(&buf, ""))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "[3] test-rmse:"), lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "[4] test-rmse:"), lines[1])
		for _, name := range []string{"0004.model", "0005.model"} {
			_, err := os.Stat(filepath.Join(sub, name))
			assert.NoError(t, err, name)
		}
		_, err = os.Stat(filepath.Join(sub, "0001.model"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing inputs", func(t *testing.T) {
		assert.Error(t, newTask().train(&bytes.Buffer{}, ""))
		assert.Error(t, newTask().predict())
		assert.Error(t, newTask().dump())
	})
}
