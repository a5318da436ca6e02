package apiserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/acorn-io/acorn-ddns/pkg/backend"
	"github.com/sirupsen/logrus"
)

type ContextKey string

// AccountID holds the authenticated user's account ID. Records are owned by it.
const AccountID ContextKey = "accountID"

func tokenAuthMiddleware(b backend.Backend) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authorization, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, errors.New("bearer token required"))
				return
			}

			user, err := b.Authenticate(r.Context(), token)
			if errors.Is(err, backend.ErrForbidden) {
				writeError(w, http.StatusForbidden, err)
				return
			}
			if err != nil {
				logrus.Errorf("failed to authenticate request to %v: %v", r.URL.Path, err)
				writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
				return
			}

			ctx := context.WithValue(r.Context(), AccountID, user.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accountIDFromContext(ctx context.Context) string {
	accountID, _ := ctx.Value(AccountID).(string)
	return accountID
}
