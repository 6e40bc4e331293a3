package middleware

import (
	"context"
	"net/http"

	"chyll/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware validates the bearer token and stores the authenticated
// client id and role in the request context. Every downstream query is scoped
// by that client id; there is no way to act on another client's data.
func JWTMiddleware(jwtSecret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(jwtSecret),
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return
			}

			sub, _ := claims["sub"].(string)
			clientID, err := uuid.Parse(sub)
			if err != nil {
				return
			}
			role, _ := claims["role"].(string)

			ctx := context.WithValue(c.Request().Context(), common.ClientIDKey, clientID)
			ctx = context.WithValue(ctx, common.RoleKey, role)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}
