package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, counseling, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeMissingSignature   = "MISSING_SIGNATURE"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeCounselingNotFound = "COUNSELING_NOT_FOUND"
	ErrCodeUpstreamFailed     = "UPSTREAM_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewMissingFieldError は必須項目の欠落エラーを生成する。
// 欠落している項目名をメッセージに含める。
func NewMissingFieldError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  "必須項目が指定されていません: " + strings.Join(fields, ", "),
		Category: "validation",
		Action:   "必須項目を指定してリクエストしてください。",
	}
}

// NewMissingSignatureError は署名ヘッダー欠落エラーを生成する。
func NewMissingSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingSignature,
		Message:  "署名ヘッダーがありません。",
		Category: "auth",
		Action:   "x-line-signatureヘッダーを付与してください。",
	}
}

// NewInvalidSignatureError は署名不一致エラーを生成する。
func NewInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "署名の検証に失敗しました。",
		Category: "auth",
		Action:   "チャネルシークレットの設定を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "counseling",
		Action:   "カウンセリングを完了してから再度お試しください。",
	}
}

// NewCounselingNotFoundError はカウンセリングデータ未登録エラーを生成する。
func NewCounselingNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCounselingNotFound,
		Message:  "カウンセリングデータが見つかりません。",
		Category: "counseling",
		Action:   "カウンセリングを完了してから再度お試しください。",
	}
}

// NewUpstreamFailedError は外部サービス呼び出し失敗エラーを生成する。
// メッセージには失敗したサービス名のみを含め、上流の応答内容やエラー詳細はログにのみ記録する。
func NewUpstreamFailedError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  fmt.Sprintf("外部サービスの呼び出しに失敗しました: %s", service),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は汎用の内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
