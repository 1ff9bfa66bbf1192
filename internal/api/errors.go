package api

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/logging"
	"github.com/verte-zerg/cpctprep/internal/store"
)

var (
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken         = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler maps handler errors to JSON responses.
func newAppHTTPErrorHandler(translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		default:
			switch {
			case errors.Is(err, store.ErrNotFound):
				code = http.StatusNotFound
				message = "not found"
			case errors.Is(err, store.ErrConflict):
				code = http.StatusConflict
				message = "already exists"
			case errors.Is(err, exam.ErrUnknownExam):
				code = http.StatusBadRequest
				message = errors.Cause(err).Error()
			default:
				code = http.StatusInternalServerError
				message = http.StatusText(http.StatusInternalServerError)
				logging.LogError("%s %s: %+v", ctx.Request().Method, ctx.Request().URL.Path, err)
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
