package middleware

import (
	"errors"
	"net/http"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"

	"github.com/labstack/echo/v4"
)

// トークンが有効でも、無効化されたユーザーのリクエストは弾く。
// 毎リクエストDBを1回読む。
func ActiveUserGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			u, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
				}
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			if !u.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("account disabled"))
			}

			return next(c)
		}
	}
}
