package middleware

import (
	"net/http"
	"strings"

	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/rs/zerolog/log"
)

// 驗證token 但若token以任何錯誤 都不會中斷，這裡僅做解析，驗證失敗則不會設置context
func AuthPayloadMiddleware(verifier auth.IVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := checkAuthPayload(verifier, r)
			if ok {
				if recoder, isRecoder := w.(*StatusRecoder); isRecoder {
					recoder.userID = identity.UserID
				}
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkAuthPayload(verifier auth.IVerifier, r *http.Request) (*auth.Identity, bool) {
	authorizationHeader := r.Header.Get(string(constants.AuthorizationHeaderKey))
	if len(authorizationHeader) == 0 {
		return nil, false
	}

	fields := strings.Fields(authorizationHeader)
	if len(fields) < 2 {
		return nil, false
	}

	if strings.ToLower(fields[0]) != string(constants.AuthorizationTypeBearer) {
		return nil, false
	}

	identity, err := verifier.Verify(fields[1])
	if err != nil {
		log.Debug().Err(err).Str("request_id", response.RequestID(r.Context())).Msg("bearer token rejected")
		return nil, false
	}
	return identity, true
}

// RequireAuth 沒有身分直接回 401
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAuthenticated(auth.IdentityFromContext(r.Context())) {
			response.Error(w, r, apperr.Unauthorized(apperr.MsgUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}
