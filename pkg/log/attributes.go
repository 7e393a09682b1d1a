package log

// Attribute keys follow a dotted hierarchy ("model.objective",
// "data.samples") so records can be filtered by prefix.

// Model and operation context.
const (
	// ModelNameKey identifies the component type, e.g. "Learner", "gbtree".
	ModelNameKey = "model.name"

	// ObjectiveKey is the objective function name, e.g. "reg:linear".
	ObjectiveKey = "model.objective"

	// BoosterKey is the ensemble type name, e.g. "gbtree".
	BoosterKey = "model.booster"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// DatasetKey is the caller-supplied dataset name ("train", "eval").
	DatasetKey = "data.name"
)

// Boosting state.
const (
	IterationKey = "training.iteration"

	// GroupKey is the output group (class index) a boosting call targets.
	GroupKey = "boost.group"

	// NumGroupKey is the number of output groups.
	NumGroupKey = "boost.num_group"

	// TreesKey is the number of incremental units in the ensemble.
	TreesKey = "boost.trees"

	// BufferOffsetKey is the prediction buffer offset assigned to a dataset.
	BufferOffsetKey = "cache.offset"

	// BufferSizeKey is the total prediction buffer length.
	BufferSizeKey = "cache.buffer_size"

	// BaseScoreKey is the global bias in margin space.
	BaseScoreKey = "model.base_score"
)

// Performance and evaluation.
const (
	DurationMsKey  = "perf.duration_ms"
	MetricKey      = "metrics.name"
	MetricValueKey = "metrics.value"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	ErrorTypeKey  = "error.type"
	SuggestionKey = "error.suggestion"
)

// Standard operation values.
const (
	OperationInit     = "init"
	OperationBoost    = "boost"
	OperationPredict  = "predict"
	OperationEval     = "eval"
	OperationSave     = "save"
	OperationLoad     = "load"
	OperationCache    = "set_cache"
	OperationInteract = "interact"
)

// Standard phases.
const (
	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)

// Standard error codes.
const (
	ErrorCacheMiss     = "CACHE_MISS"
	ErrorUnknownMetric = "UNKNOWN_METRIC"
	ErrorNotFitted     = "NOT_FITTED"
)
