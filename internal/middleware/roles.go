package middleware

import (
	"context"
	"net/http"
	"time"

	"chyll/internal/common"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/labstack/echo/v4"
)

// roleCheckTimeout bounds the role lookup. A slow or unreachable database
// fails the check closed: no role confirmation, no admin access.
const roleCheckTimeout = 5 * time.Second

type RoleMiddleware struct {
	clientRepo repositories.ClientRepository
}

func NewRoleMiddleware(clientRepo repositories.ClientRepository) *RoleMiddleware {
	return &RoleMiddleware{clientRepo: clientRepo}
}

// RequireAdmin re-reads the role from the database rather than trusting the
// token claim, so a demoted admin loses access as soon as the row changes.
func (m *RoleMiddleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientID, ok := common.GetClientIDFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), roleCheckTimeout)
			defer cancel()

			role, err := m.clientRepo.GetRole(ctx, clientID)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Role could not be verified")
			}
			if role != models.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
			}

			return next(c)
		}
	}
}
