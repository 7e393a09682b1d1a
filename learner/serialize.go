package learner

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/gboost/core/model"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
)

// SaveModel writes the model: the header record, the objective name, the
// booster name and the booster's own blob. Names are uint64
// length-prefixed.
func (l *Learner) SaveModel(w io.Writer) (err error) {
	defer gberrors.Recover(&err, "Learner.SaveModel")
	if err := l.checkInit("SaveModel"); err != nil {
		return err
	}
	sw := model.NewStreamWriter(w)
	sw.WriteStruct(&l.header)
	sw.WriteString(l.nameObj)
	sw.WriteString(l.nameGbm)
	if err := sw.Err(); err != nil {
		return gberrors.Wrap(err, "failed to write model header")
	}
	if err := l.gbm.SaveModel(w); err != nil {
		return err
	}
	l.logger.Debug("model saved",
		log.OperationKey, log.OperationSave,
		log.ObjectiveKey, l.nameObj,
		log.BoosterKey, l.nameGbm,
		log.TreesKey, l.gbm.NumUnits())
	return nil
}

// LoadModel replaces the model with one read from r. The objective and
// booster are rebuilt from the names in the stream, then the recorded
// configuration is replayed into them. On error the learner keeps its
// previous model.
//
// Buffered predictions stay valid only if the caller registered the same
// datasets, in the same order, as when the model was saved.
func (l *Learner) LoadModel(r io.Reader) (err error) {
	const op = "Learner.LoadModel"
	defer gberrors.Recover(&err, op)
	sr := model.NewStreamReader(r, op)
	var h ModelHeader
	sr.ReadStruct("model header", &h)
	nameObj := sr.ReadString("objective name")
	nameGbm := sr.ReadString("booster name")
	if err := sr.Err(); err != nil {
		return err
	}

	obj, booster, err := l.buildObjGBM(nameObj, nameGbm, h.NumClass)
	if err != nil {
		return err
	}
	if err := booster.LoadModel(r); err != nil {
		return err
	}
	if err := l.commitObjGBM(obj, booster); err != nil {
		return err
	}
	l.header = h
	l.nameObj, l.nameGbm = nameObj, nameGbm
	l.info("model loaded",
		log.OperationKey, log.OperationLoad,
		log.ObjectiveKey, l.nameObj,
		log.BoosterKey, l.nameGbm,
		log.TreesKey, l.gbm.NumUnits())
	return nil
}

// SaveFile writes the model to filename.
func (l *Learner) SaveFile(filename string) error {
	return model.SaveFile(l, filename)
}

// LoadFile reads the model from filename.
func (l *Learner) LoadFile(filename string) error {
	return model.LoadFile(l, filename)
}

// DumpModel renders every unit of the booster as text.
func (l *Learner) DumpModel(withStats bool) (string, error) {
	if err := l.checkInit("DumpModel"); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, s := range l.gbm.Dump(withStats) {
		fmt.Fprintf(&sb, "booster[%d]:\n", i)
		sb.WriteString(s)
	}
	return sb.String(), nil
}
