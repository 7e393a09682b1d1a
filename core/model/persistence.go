package model

import (
	"bufio"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Saver はバイナリ形式で自身を書き出せるコンポーネントです。
type Saver interface {
	SaveModel(w io.Writer) error
}

// Loader はバイナリ形式から自身を復元できるコンポーネントです。
type Loader interface {
	LoadModel(r io.Reader) error
}

// SaveFile はモデルをファイルに保存する
//
// パラメータ:
//   - m: 保存するモデル（Learner, gbtree など）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	err := model.SaveFile(lrn, "0010.model")
func SaveFile(m Saver, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()

	bw := bufio.NewWriter(file)
	if err := m.SaveModel(bw); err != nil {
		return errors.Wrapf(err, "failed to save model to %s", filename)
	}
	return errors.Wrap(bw.Flush(), "failed to flush model file")
}

// LoadFile はファイルからモデルを読み込む
//
// 使用例:
//
//	lrn := learner.New()
//	err := model.LoadFile(lrn, "0010.model")
func LoadFile(m Loader, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	if err := m.LoadModel(bufio.NewReader(file)); err != nil {
		return errors.Wrapf(err, "failed to load model from %s", filename)
	}
	return nil
}
