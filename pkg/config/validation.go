package config

import (
	"reflect"
	"sort"
	"strings"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// Validator is implemented by configuration structs with custom rules.
// Load calls Validate after the required-field check succeeds. Errors that
// are not already *pserr.Error are wrapped with [pserr.CodeValidation].
type Validator interface {
	Validate() error
}

func validate(cfg any, rv reflect.Value) error {
	if err := RequiredError(cfg); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, isPersonaErr := pserr.AsError(err); isPersonaErr {
				return err
			}
			return pserr.Wrap(err, pserr.CodeValidation,
				"config: custom validation failed")
		}
	}

	return nil
}

// MissingRequired returns the sorted names of all fields tagged
// `required:"true"` that hold their zero value. cfg may be a struct or a
// pointer to one; anything else yields nil.
func MissingRequired(cfg any) []string {
	rv := reflect.ValueOf(cfg)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var missing []string
	collectMissing(rv, "", &missing)
	sort.Strings(missing)
	return missing
}

// RequiredError returns a [pserr.CodeValidationRequired] error listing
// every missing required field, or nil when none are missing. The
// message ends with the sorted names joined by ", " and the names are
// also available in the "missing" detail.
func RequiredError(cfg any) error {
	missing := MissingRequired(cfg)
	if len(missing) == 0 {
		return nil
	}
	return pserr.Newf(pserr.CodeValidationRequired,
		"config: missing required values for: %s", strings.Join(missing, ", ")).
		WithDetail("missing", missing)
}

func collectMissing(rv reflect.Value, path string, missing *[]string) {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !sf.IsExported() {
			continue
		}

		name := fieldName(sf)
		if path != "" {
			name = path + "." + name
		}

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			collectMissing(field, name, missing)
			continue
		}

		if sf.Tag.Get("required") == "true" && field.IsZero() {
			*missing = append(*missing, name)
		}
	}
}

// fieldName is the field's yaml key, or its Go name when it has none.
func fieldName(sf reflect.StructField) string {
	if tag := sf.Tag.Get("yaml"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}
