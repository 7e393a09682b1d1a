package data

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
)

// ReadLibSVM parses LibSVM text: one row per line, "label idx:value ...".
// Blank lines and lines starting with '#' are skipped. A "qid:N" token is
// accepted and ignored; query groups come from the .group sidecar.
func ReadLibSVM(r io.Reader) (*DMatrix, error) {
	d := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var row []Entry
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		label, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return nil, gberrors.Wrapf(err, "libsvm line %d: bad label %q", lineNo, fields[0])
		}
		row = row[:0]
		for _, tok := range fields[1:] {
			k, v, ok := strings.Cut(tok, ":")
			if !ok {
				return nil, gberrors.Newf("libsvm line %d: bad token %q", lineNo, tok)
			}
			if k == "qid" {
				continue
			}
			idx, err := strconv.ParseUint(k, 10, 32)
			if err != nil {
				return nil, gberrors.Wrapf(err, "libsvm line %d: bad feature index %q", lineNo, k)
			}
			val, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return nil, gberrors.Wrapf(err, "libsvm line %d: bad feature value %q", lineNo, v)
			}
			row = append(row, Entry{Index: uint32(idx), Value: float32(val)})
		}
		d.AddRow(row, float32(label))
	}
	if err := sc.Err(); err != nil {
		return nil, gberrors.Wrap(err, "libsvm: read failed")
	}
	return d, nil
}

// ReadGroupSizes parses one query group size per line and returns the
// cumulative boundaries.
func ReadGroupSizes(r io.Reader) ([]uint32, error) {
	ptr := []uint32{0}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		n, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return nil, gberrors.Wrapf(err, "group: bad size %q", line)
		}
		ptr = append(ptr, ptr[len(ptr)-1]+uint32(n))
	}
	if err := sc.Err(); err != nil {
		return nil, gberrors.Wrap(err, "group: read failed")
	}
	return ptr, nil
}

// ReadWeights parses one float weight per line.
func ReadWeights(r io.Reader) ([]float32, error) {
	var out []float32
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		w, err := strconv.ParseFloat(line, 32)
		if err != nil {
			return nil, gberrors.Wrapf(err, "weight: bad value %q", line)
		}
		out = append(out, float32(w))
	}
	if err := sc.Err(); err != nil {
		return nil, gberrors.Wrap(err, "weight: read failed")
	}
	return out, nil
}

// Load reads a matrix from path. Files ending in ".buffer" use the binary
// format written by SaveBinaryFile; anything else is parsed as LibSVM, with
// optional "<path>.group" and "<path>.weight" sidecars.
func Load(path string) (*DMatrix, error) {
	logger := log.GetLoggerWithName("data")

	if strings.HasSuffix(path, ".buffer") {
		d, err := LoadBinaryFile(path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded binary matrix", log.DatasetKey, path,
			log.SamplesKey, d.NumRow(), log.FeaturesKey, d.NumCol())
		return d, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, gberrors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	d, err := ReadLibSVM(bufio.NewReader(f))
	if err != nil {
		return nil, gberrors.Wrapf(err, "failed to parse %s", path)
	}

	if err := readSidecar(path+".group", func(r io.Reader) (err error) {
		d.Info.GroupPtr, err = ReadGroupSizes(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := readSidecar(path+".weight", func(r io.Reader) (err error) {
		d.Info.Weights, err = ReadWeights(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, gberrors.Wrapf(err, "inconsistent metadata for %s", path)
	}

	logger.Info("loaded libsvm matrix", log.DatasetKey, path,
		log.SamplesKey, d.NumRow(), log.FeaturesKey, d.NumCol(),
		"data.entries", d.NumEntry())
	return d, nil
}

func readSidecar(path string, parse func(io.Reader) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return gberrors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return parse(f)
}
