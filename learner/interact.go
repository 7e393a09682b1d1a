package learner

import (
	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
)

// Interactive update actions.
const (
	ActionBoost  = "boost"
	ActionRemove = "remove"
)

// UpdateInteract changes the model in place. ActionRemove drops the last
// incremental unit; ActionBoost (or "") adds one boosting round on train
// ignoring its root index. Every cached dataset is re-predicted before the
// action and again after a boost, so train must be registered.
func (l *Learner) UpdateInteract(action string, train *data.DMatrix) (err error) {
	const op = "Learner.UpdateInteract"
	defer gberrors.Recover(&err, op)
	if err := l.checkInit("UpdateInteract"); err != nil {
		return err
	}
	if action != "" && action != ActionBoost && action != ActionRemove {
		return gberrors.NewValueError(op, "unknown action '"+action+"'")
	}
	offset := l.cache.Lookup(train)
	if offset < 0 {
		return gberrors.NewStateError(op, "interact mode must cache training data")
	}
	if err := l.refreshCache(); err != nil {
		return err
	}

	if action == ActionRemove {
		if err := l.gbm.DeleteLast(); err != nil {
			return err
		}
		l.logger.Debug("unit removed",
			log.OperationKey, log.OperationInteract,
			log.TreesKey, l.gbm.NumUnits())
		return nil
	}

	l.preds = l.predictRaw(l.preds, train, offset, -1)
	gpair, err := l.obj.GetGradient(l.preds, &train.Info, l.gbm.NumUnits())
	if err != nil {
		return err
	}
	if err := l.boost(gpair, train, nil, offset); err != nil {
		return err
	}
	if err := l.refreshCache(); err != nil {
		return err
	}
	l.logger.Debug("interactive boost",
		log.OperationKey, log.OperationInteract,
		log.TreesKey, l.gbm.NumUnits())
	return nil
}

// refreshCache predicts every cached dataset through its buffer so each
// slot holds the sum of the current ensemble.
func (l *Learner) refreshCache() error {
	for _, h := range l.cache.Entries() {
		if !l.cache.Valid(h) {
			return gberrors.NewStateError("Learner.UpdateInteract", "interact mode must cache training data")
		}
		l.predictRaw(nil, h.Dataset, h.Offset, -1)
	}
	return nil
}
