package fifo

import (
	"errors"
	"fmt"
)

// Shared error definitions for the analysis pipeline
// 分析パイプライン共通のエラー定義

var (
	// ErrNoSuchColumn is returned when a required input column is missing
	// 必須入力カラムが存在しない場合のエラー
	ErrNoSuchColumn = errors.New("必須カラムが見つかりません")

	// ErrEmptyInput is returned when an input source has no header row at all
	// 入力にヘッダー行すら存在しない場合のエラー
	ErrEmptyInput = errors.New("入力データが空です")
)

// ValidationError represents a malformed input value with details. Malformed
// events fail fast at the normalization boundary; the engine itself never
// sees one.
// 詳細付きの入力バリデーションエラー
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
