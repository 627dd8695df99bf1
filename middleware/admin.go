package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

// AdminRequired gates administrator endpoints. It re-reads the role
// from the database instead of trusting the token snapshot, so a
// revoked admin loses access the moment their role row changes. This
// is the data-access boundary check; hiding buttons in a client is
// not access control.
//
// The rejection message is deliberately generic so callers cannot
// probe which rule blocked them.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		val, exists := ctx.Get(ContextUserIDKey)
		if !exists {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}
		uid, ok := val.(uint)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.Select("id", "role").First(&user, uid).Error; err != nil {
			utils.Error(ctx, http.StatusForbidden, 40310, "not permitted")
			ctx.Abort()
			return
		}
		if !user.IsAdmin() {
			utils.Error(ctx, http.StatusForbidden, 40310, "not permitted")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
