// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kotakun/internal/middleware"
	"github.com/hitoshi/kotakun/internal/model"
)

// maxRequestBodySize はリクエストボディとして受け付ける最大バイト数。
const maxRequestBodySize = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
// エンコードに失敗した場合はステータスを書き込む前に500の統一エラーに切り替える。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(data, '\n'))
}

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
// 解析できない場合はINVALID_REQUESTエラーを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewInvalidRequestError()
	}
	return nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは詳細をログにのみ記録し、汎用の内部エラーを返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		if statusCode >= http.StatusInternalServerError {
			logger.Error("リクエストの処理に失敗しました",
				slog.String("path", r.URL.Path),
				slog.String("code", apiErr.Code),
				slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			)
		}
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	logger.Error("internal server error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeMissingField:
		return http.StatusBadRequest
	case model.ErrCodeMissingSignature, model.ErrCodeInvalidSignature:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound, model.ErrCodeCounselingNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
