package middleware

import (
	"net/http"

	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BuyerIDHeader carries the authenticated buyer id. It is set by the API
// gateway in front of this service; authentication itself lives there, not
// here.
const BuyerIDHeader = "X-Buyer-ID"

// Identity middleware untuk extract buyer ID dari gateway header
func Identity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(BuyerIDHeader)
			if header == "" {
				utils.ResponseUnauthorized(w, "Missing buyer identity")
				return
			}

			buyerID, err := uuid.Parse(header)
			if err != nil {
				logger.Warn("Invalid buyer identity header",
					zap.String("header", header),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseUnauthorized(w, "Invalid buyer identity")
				return
			}

			ctx := utils.SetBuyerContext(r.Context(), buyerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
