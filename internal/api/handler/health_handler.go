package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
)

type ConnectionChecker interface {
	CheckConnections(ctx context.Context) db.ConnectionStatus
}

type HealthResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	Databases db.ConnectionStatus `json:"databases"`
}

type HealthHandler struct {
	checker ConnectionChecker
	nowFn   func() time.Time
}

func NewHealthHandler(checker ConnectionChecker) *HealthHandler {
	if checker == nil {
		panic("checker cannot be nil")
	}
	return &HealthHandler{checker: checker, nowFn: time.Now}
}

// @Summary health check
// @Description 檢查三個資料庫連線，全部正常回 200，否則 503
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=HealthResponse}
// @Failure 503 {object} response.Response{data=HealthResponse}
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckConnections(r.Context())
	body := response.Response{
		Success: status.AllUp(),
		Data: HealthResponse{
			Timestamp: h.nowFn().UTC(),
			Databases: status,
		},
	}
	code := http.StatusOK
	if !status.AllUp() {
		code = http.StatusServiceUnavailable
		body.Error = "One or more databases are unavailable"
	}
	response.JSON(w, code, body)
}
