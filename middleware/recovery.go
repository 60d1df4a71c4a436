package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/kinship-api/kinship/jsonapi"
)

// Recovery turns panics into logged 500 error documents so a broken
// controller cannot take the whole connection down.
func Recovery(log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					err, ok := v.(error)
					if !ok {
						err = fmt.Errorf("%v", v)
					}

					log.Error("panic recovered",
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("request_id", GetRequestID(r.Context())),
						zap.Error(err),
						zap.ByteString("stack", debug.Stack()),
					)

					jsonapi.WriteError(w, jsonapi.ErrInternal())
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
