package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/admissions/core/staff"
)

// activeStaffMiddleware lets through the requests of staff accounts that still exist & are active.
func activeStaffMiddleware(auth authenticator, svc *staff.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := auth.contextStaff(ctx, svc)
			if err != nil {
				return err
			}
			if !s.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}
