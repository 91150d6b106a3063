package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type syncRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type batchRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required,max=200"`
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fieldName(fe)))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", fieldName(fe), fe.Param()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", fieldName(fe), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s", fieldName(fe), fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

func fieldName(fe validator.FieldError) string {
	if fe.Field() == "" {
		return "value"
	}
	return strings.ToLower(fe.Field())
}
