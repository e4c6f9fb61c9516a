package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const roleAdmin = "ADMIN"

// AdminRoleGuard は /admin 配下の入口。
// AuthJWTがcontextへ入れたroleを見てADMIN以外を弾く。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				//AuthJWTを通っていない
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if role != roleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}

			return next(c)
		}
	}
}
