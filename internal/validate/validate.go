// Package validate checks and cleans record input before it reaches the
// containers.
//
// Struct rules are declared with go-playground/validator tags. Field names in
// errors come from the json tag so HTTP callers see the names they sent.
// decimal.Decimal fields validate as float64, so numeric tags such as
// gte=0.01 apply to prices directly.
package validate

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// ErrInvalid matches every validation failure under errors.Is.
var ErrInvalid = errors.New("validate: invalid input")

// FieldError describes one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s failed %s=%s", f.Field, f.Tag, f.Param)
	}
	return fmt.Sprintf("%s failed %s", f.Field, f.Tag)
}

// Errors is the list of failed rules for one value.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return ErrInvalid.Error()
	}
	parts := make([]string, len(e))
	for i, f := range e {
		parts[i] = f.String()
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrInvalid.
func (e Errors) Is(target error) bool { return target == ErrInvalid }

var (
	once   sync.Once
	engine *validator.Validate
	strict *bluemonday.Policy
)

func setup() {
	engine = validator.New(validator.WithRequiredStructEnabled())
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	engine.RegisterCustomTypeFunc(func(v reflect.Value) any {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	engine.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	strict = bluemonday.StrictPolicy()
}

// Struct validates s against its validate tags.
func Struct(s any) error {
	once.Do(setup)
	err := engine.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// Field returns an Errors value for a single failed rule. Record
// constructors use it for checks that tags cannot express.
func Field(field, tag, param string) error {
	return Errors{{Field: field, Tag: tag, Param: param}}
}

var spaces = regexp.MustCompile(`\s+`)

// Line strips markup from s, joins its lines with single spaces and trims it.
func Line(s string) string {
	once.Do(setup)
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// Text is Line with commas also replaced by spaces. Catalogue text goes
// through Text so it stays safe for comma-separated exports.
func Text(s string) string {
	return Line(strings.ReplaceAll(s, ",", " "))
}

// Email trims and lower-cases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
