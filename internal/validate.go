package internal

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate drives the `validate:` tags on the request models. One instance
// for the whole server; the validator caches struct metadata internally.
var validate = validator.New(validator.WithRequiredStructEnabled())

// checkRequest runs struct validation and, on failure, writes a
// VALIDATION_ERROR envelope listing the offending fields. Returns false when
// the request must not proceed.
func checkRequest(w http.ResponseWriter, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		writeValidationError(w, err.Error(), nil)
		return false
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	writeValidationError(w, "invalid request: "+strings.Join(fields, ", "), fields)
	return false
}
