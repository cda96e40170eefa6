package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindHTTPStatus(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unauthorized", err: Unauthorized(""), status: http.StatusUnauthorized},
		{name: "forbidden", err: Forbidden("admin only"), status: http.StatusForbidden},
		{name: "validation", err: Validation("cart", MsgCartEmpty), status: http.StatusBadRequest},
		{name: "not found", err: NotFound("order"), status: http.StatusNotFound},
		{name: "conflict", err: Conflict(MsgCheckoutInProgress), status: http.StatusConflict},
		{name: "internal", err: Internal(errors.New("db down")), status: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.status, KindOf(tc.err).HTTPStatus())
		})
	}
}

// 分類只看 Kind，不看訊息內容
func TestKindIgnoresMessageText(t *testing.T) {
	err := Internal(errors.New("Unauthorized access to pg_catalog"))
	require.Equal(t, KindInternal, KindOf(err))

	wrapped := fmt.Errorf("create order: %w", Validation("quantity", MsgInsufficientStock))
	require.True(t, IsKind(wrapped, KindValidation))
	appErr := As(wrapped)
	require.Equal(t, "quantity", appErr.Field)
	require.Equal(t, MsgInsufficientStock, appErr.Message)
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internalf(cause, "load cart %s", "u1")
	require.ErrorIs(t, err, cause)
	require.Equal(t, MsgInternal, err.Message)
	require.Contains(t, err.Error(), "load cart u1")
}
