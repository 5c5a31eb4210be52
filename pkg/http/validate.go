package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report JSON field names instead of Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// ReadAndValidateRequest binds the body into req, applies `default` tags and
// runs `validate` tags. It returns nil or a []ValidationError suitable for
// BadRequestResponse.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return bindErrors(err)
	}

	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Code: "ERR_DEFAULTS", Message: err.Error()}}
	}

	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validationErrors(err)
	}

	return nil
}

func bindErrors(err error) []ValidationError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(he.Internal, &typeErr) {
			return []ValidationError{{
				Code:    "ERR_TYPE",
				Field:   typeErr.Field,
				Message: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind()),
			}}
		}
		if he.Internal != nil {
			return []ValidationError{{Code: "ERR_BIND", Message: he.Internal.Error()}}
		}
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprintf("%v", he.Message)}}
	}
	return []ValidationError{{Code: "ERR_BIND", Message: err.Error()}}
}

func validationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		out = append(out, ValidationError{
			Code:    "ERR_" + strings.ToUpper(e.Tag()),
			Field:   e.Field(),
			Message: errorMessage(e),
			Params:  errorParams(e),
		})
	}
	return out
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "eth_addr":
		return fmt.Sprintf("%s must be a hex address", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func errorParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "lte", "max":
		return map[string]interface{}{"max": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
