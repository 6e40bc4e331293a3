package handlers

import (
	"errors"
	"net/http"

	"chyll/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound requests.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// serviceError maps typed service errors onto HTTP status codes so every
// handler reports failures the same way.
func serviceError(err error) error {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	var nfe *common.NotFoundError
	if errors.As(err, &nfe) {
		return echo.NewHTTPError(http.StatusNotFound, nfe.Error())
	}
	var ae *common.AuthorizationError
	if errors.As(err, &ae) {
		return echo.NewHTTPError(http.StatusUnauthorized, ae.Error())
	}
	var ue *common.UpstreamError
	if errors.As(err, &ue) {
		return echo.NewHTTPError(http.StatusBadGateway, ue.Error())
	}
	if errors.Is(err, common.ErrTransientSession) {
		return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
