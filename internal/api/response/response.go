package response

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/rs/zerolog/log"
)

const MsgTooManyRequests = "Too many requests"

// Response 所有 API 共用的回應格式
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Response{Success: true, Data: data})
}

// Message 成功但沒有資料，例如刪除
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, Response{Success: true, Message: msg})
}

// Error 依錯誤分類決定 status，internal 錯誤只記 log 不回傳細節
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.As(err)
	status := appErr.Kind.HTTPStatus()
	body := Response{Success: false, Error: appErr.Message}

	switch appErr.Kind {
	case apperr.KindInternal:
		body.Error = apperr.MsgInternal
		log.Error().
			Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Msg("internal error")
	case apperr.KindValidation:
		if appErr.Field != "" {
			body.Message = fmt.Sprintf("invalid field: %s", appErr.Field)
		}
	}
	JSON(w, status, body)
}

func TooManyRequests(w http.ResponseWriter) {
	JSON(w, http.StatusTooManyRequests, Response{Success: false, Error: MsgTooManyRequests})
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(constants.RequestIDKey).(string); ok {
		return v
	}
	return "unknown"
}
