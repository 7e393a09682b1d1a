// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// 致命的なエラーは error として返され、回復可能な診断（キャッシュミス、未知のメトリクス）は
// Warn を通じて報告されます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("gboost-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// SetZerologWarnFunc で zerolog 関数が設定されている場合はそちらが優先されます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nil を渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	回復可能な警告型
//
// ===========================================================================

// CacheMissWarning はキャッシュ登録済みのデータセットが予測バッファを使用できない場合の警告です。
// 行数が登録時から変化した場合、または別の Learner に所有権が移った場合に発生します。
type CacheMissWarning struct {
	Reason        string
	RegisteredRow int
	CurrentRow    int
}

func (w *CacheMissWarning) Error() string {
	return fmt.Sprintf("prediction cache bypassed (%s): registered with %d rows, now %d rows; ignoring cached results",
		w.Reason, w.RegisteredRow, w.CurrentRow)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *CacheMissWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("reason", w.Reason).
		Int("registered_rows", w.RegisteredRow).
		Int("current_rows", w.CurrentRow).
		Str("type", "CacheMissWarning")
}

// NewCacheMissWarning は新しいCacheMissWarningを作成します。
func NewCacheMissWarning(reason string, registered, current int) *CacheMissWarning {
	return &CacheMissWarning{Reason: reason, RegisteredRow: registered, CurrentRow: current}
}

// UnknownMetricWarning は評価指標の名前が登録されていない場合の警告です。
// Evaluate は空の結果を返し、処理は継続します。
type UnknownMetricWarning struct {
	Metric string
}

func (w *UnknownMetricWarning) Error() string {
	return fmt.Sprintf("unknown evaluation metric '%s', result left empty", w.Metric)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UnknownMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("type", "UnknownMetricWarning")
}

// NewUnknownMetricWarning は新しいUnknownMetricWarningを作成します。
func NewUnknownMetricWarning(metric string) *UnknownMetricWarning {
	return &UnknownMetricWarning{Metric: metric}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ConfigurationError はファクトリに未知の名前（objective, booster, metric）が渡された場合のエラーです。
type ConfigurationError struct {
	Kind string // "objective", "booster", "metric"
	Name string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gboost: unknown %s '%s'", e.Kind, e.Name)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", e.Kind).
		Str("name", e.Name).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(kind, name string) error {
	return errors.WithStack(&ConfigurationError{Kind: kind, Name: name})
}

// FormatError はモデルやデータのストリームが切り詰められているか壊れている場合のエラーです。
type FormatError struct {
	Op    string
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gboost: %s: wrong model format reading %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("gboost: %s: wrong model format reading %s", e.Op, e.Field)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("field", e.Field).
		Str("type", "FormatError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewFormatError は新しいFormatErrorを作成し、スタックトレースを付与します。
func NewFormatError(op, field string, err error) error {
	return errors.WithStack(&FormatError{Op: op, Field: field, Err: err})
}

// StateError はプログラムの不変条件違反を表します。
// 例: キャッシュの二重登録、勾配列の長さ不一致、base_score の範囲外。
type StateError struct {
	Op      string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("gboost: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *StateError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "StateError")
}

// NewStateError は新しいStateErrorを作成し、スタックトレースを付与します。
func NewStateError(op, message string) error {
	return errors.WithStack(&StateError{Op: op, Message: message})
}

// NewStateErrorf はフォーマット文字列からStateErrorを作成します。
func NewStateErrorf(op, format string, args ...interface{}) error {
	return NewStateError(op, fmt.Sprintf(format, args...))
}

// NotFittedError はモデルが未初期化の状態で予測やブースティングを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("gboost: %s: model is not initialized. Call InitModel() or LoadModel() before %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("gboost: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、ロジスティック目的関数に [0,1] 外のラベルを渡した場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gboost: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrNotImplemented は機能が未実装の場合のエラーです。
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
