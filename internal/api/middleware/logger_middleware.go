package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type StatusRecoder struct {
	http.ResponseWriter
	status int
	// userID 由 AuthPayloadMiddleware 回填，logger 在外層讀不到內層 context
	userID uuid.UUID
}

func (w *StatusRecoder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *StatusRecoder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *StatusRecoder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func getUserID(w *StatusRecoder, r *http.Request) uuid.UUID {
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		return identity.UserID
	}
	return w.userID
}

// 記錄request 請求
// 有一起處理recover
func LoggerMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recoder := &StatusRecoder{ResponseWriter: w}
			start := time.Now()

			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error().
						Str("request_id", response.RequestID(r.Context())).
						Str("user_id", getUserID(recoder, r).String()).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Str("error", fmt.Sprintf("%v", err)).
						Bytes("stack", debug.Stack()).
						Msg("request panic")

					if recoder.status == 0 {
						response.Error(recoder, r, apperr.Internal(fmt.Errorf("panic: %v", err)))
					}
				}

				status := recoder.Status()
				evt := logger.Info()
				if status >= http.StatusInternalServerError {
					evt = logger.Error()
				} else if status >= http.StatusBadRequest {
					evt = logger.Warn()
				}
				evt.
					Str("request_id", response.RequestID(r.Context())).
					Str("user_id", getUserID(recoder, r).String()).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Int("status", status).
					Dur("latency", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(recoder, r)
		})
	}
}
