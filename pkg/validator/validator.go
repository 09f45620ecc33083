package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/FatPandaC8/Vexpo/internal/models"
)

var registerOnce sync.Once

// Register installs the custom binding tags on gin's validator engine.
// Safe to call more than once.
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("validator: unexpected binding engine")
			return
		}
		if err = v.RegisterValidation("expo_role", validateRole); err != nil {
			return
		}
		err = v.RegisterValidation("booth_status", validateBoothStatus)
	})
	return err
}

func validateRole(fl validator.FieldLevel) bool {
	_, ok := models.ParseRole(fl.Field().String())
	return ok
}

func validateBoothStatus(fl validator.FieldLevel) bool {
	_, ok := models.ParseBoothStatus(fl.Field().String())
	return ok
}

// FormatValidationError turns binding errors into a single readable message.
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, fieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "expo_role":
		return fmt.Sprintf("%s must be one of visitor, exhibitor, organizer, admin", field)
	case "booth_status":
		return fmt.Sprintf("%s must be one of pending, approved, rejected", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in the form %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, fieldName(fe.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func fieldName(field string) string {
	fieldNames := map[string]string{
		"MapRow":    "map_row",
		"MapCol":    "map_col",
		"StartDate": "start_date",
		"EndDate":   "end_date",
		"ModelPath": "model_path",
	}
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}
