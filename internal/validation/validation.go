// Package validation holds the shared struct validator.
package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SafeNamePattern is the set of names that can be used directly as file stems.
var SafeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator with the custom tags registered.
// Field names in errors follow the json tag.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("safename", func(fl validator.FieldLevel) bool {
			return IsSafeName(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// IsSafeName reports whether name is non-empty and filesystem safe.
func IsSafeName(name string) bool {
	return SafeNamePattern.MatchString(name)
}
