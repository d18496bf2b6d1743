// internal/api/middleware/recovery.go
package middleware

import (
	"fmt"
	"net/http"

	"github.com/planetquant/quant-engine/internal/api/response"
	"github.com/planetquant/quant-engine/internal/core"
	"go.uber.org/zap"
)

// Recovery returns middleware that converts handler panics into 500 responses.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panicked",
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec))
					response.Error(w, http.StatusInternalServerError,
						core.WrapError(core.ErrInternal, fmt.Errorf("%v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
