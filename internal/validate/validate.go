// Package validate checks user supplied input before it reaches storage or
// the network. The same rules run on the server and in the client SDK.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

var (
	symbolPattern   = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// Error lists the failing fields keyed by their JSON name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldError builds an *Error for a single field.
func FieldError(field, msg string) *Error {
	return &Error{Fields: map[string]string{field: msg}}
}

// IsValidation reports whether err carries field level validation failures.
func IsValidation(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

// Validator runs struct validation with the custom tags used across the
// module: symbol, username, notfuture, decgt, decgte and declte.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// Default uses the wall clock.
var Default = New(nil)

func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	val := &Validator{v: validator.New(), now: now}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	val.v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	val.v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(models.Date); ok && !d.IsZero() {
			return d.String()
		}
		return ""
	}, models.Date{})

	mustRegister(val.v, "symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	})
	mustRegister(val.v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(val.v, "notfuture", func(fl validator.FieldLevel) bool {
		d, err := models.ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		return !d.After(models.DateOf(val.now()))
	})
	mustRegister(val.v, "decgt", decimalCompare(func(c int) bool { return c > 0 }))
	mustRegister(val.v, "decgte", decimalCompare(func(c int) bool { return c >= 0 }))
	mustRegister(val.v, "declte", decimalCompare(func(c int) bool { return c <= 0 }))
	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %s: %v", tag, err))
	}
}

func decimalCompare(ok func(int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		limit, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return ok(value.Cmp(limit))
	}
}

// Struct validates s and converts failures into an *Error.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "symbol":
		return "must be 1-10 characters of A-Z, 0-9, '.' or '-'"
	case "username":
		return "may only contain letters, digits, '.', '_' and '-'"
	case "notfuture":
		return "must be a valid date not in the future"
	case "decgt":
		return "must be greater than " + fe.Param()
	case "decgte":
		return "must be at least " + fe.Param()
	case "declte":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "does not match"
	default:
		return "is invalid"
	}
}
