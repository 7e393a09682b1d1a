package learner

import (
	"strconv"
)

// ModelHeader is the fixed-size record written at the start of every model
// file. Fields are serialized in declaration order, little endian. New
// fields take a slot from Reserved so the record size never changes.
type ModelHeader struct {
	// BaseScore is the global bias. After InitModel it is in margin space.
	BaseScore float32
	// NumFeature is the largest feature count seen. It never decreases.
	NumFeature uint32
	// NumClass is the number of classes for multi-class objectives, 0 otherwise.
	NumClass int32
	// ClearPeriod clears the training prediction buffer every ClearPeriod
	// iterations when non-zero.
	ClearPeriod int32
	Reserved    [31]int32
}

// headerSize is the serialized size of ModelHeader in bytes.
const headerSize = 4 * (4 + 31)

// DefaultHeader returns the header of an untrained model.
func DefaultHeader() ModelHeader {
	return ModelHeader{BaseScore: 0.5}
}

// SetParam applies a header key. It reports whether the key was recognized.
// Malformed values are ignored.
func (h *ModelHeader) SetParam(name, value string) bool {
	switch name {
	case "base_score":
		if v, err := strconv.ParseFloat(value, 32); err == nil {
			h.BaseScore = float32(v)
		}
	case "num_class":
		if v, err := strconv.ParseInt(value, 10, 32); err == nil {
			h.NumClass = int32(v)
		}
	case "bst:num_feature":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil && uint32(v) > h.NumFeature {
			h.NumFeature = uint32(v)
		}
	case "clear_period":
		if v, err := strconv.ParseInt(value, 10, 32); err == nil {
			h.ClearPeriod = int32(v)
		}
	default:
		return false
	}
	return true
}
