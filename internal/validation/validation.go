// Package validation checks ledger entities before they enter the ledger.
//
// The constraint table lives in `validate` struct tags on the entity types, so the same
// declaration documents and enforces each rule. Rules that span several fields are
// contributed by the entity through CrossChecker.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

// Bounds shared by the constraint table, in cents.
const (
	MaxAmount  = 99_999_999_900
	MaxBalance = 99_999_999_900
	// MaxAttachmentSize is 10 MiB.
	MaxAttachmentSize = 10 << 20
)

var yearMonth = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is the list of failed rules for one entity. It matches ledger.ErrValidation.
type Error struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}

	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *Error) Is(target error) bool {
	return target == ledger.ErrValidation
}

// CrossChecker is implemented by entities with rules that involve more than one field.
type CrossChecker interface {
	CrossCheck() []FieldError
}

// Options carries per-operation validation switches.
type Options struct {
	// StrictCounterparty allows a vendor only on exits and a customer only on entries.
	StrictCounterparty bool
}

var std = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return lowerCamel(f.Name)
	})

	must(v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		return isFormattedCNPJ(fl.Field().String())
	}))
	must(v.RegisterValidation("cnpj_cpf", func(fl validator.FieldLevel) bool {
		return isCNPJOrCPF(fl.Field().String())
	}))
	must(v.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		return yearMonth.MatchString(fl.Field().String())
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Validate checks entity against its tags and cross-field rules. It returns nil or *Error.
func Validate(entity any) error {
	var fields []FieldError

	if err := std.Struct(entity); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating %s: %w", entityName(entity), err)
		}

		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fieldPath(fe),
				Code:    fe.Tag(),
				Message: message(fe),
			})
		}
	}

	if cc, ok := entity.(CrossChecker); ok {
		fields = append(fields, cc.CrossCheck()...)
	}

	if len(fields) == 0 {
		return nil
	}

	return &Error{Entity: entityName(entity), Fields: fields}
}

// Fail builds a single-field validation error for rules checked outside struct tags.
func Fail(entity, field, code, msg string) error {
	return &Error{Entity: entity, Fields: []FieldError{{Field: field, Code: code, Message: msg}}}
}

// Merge folds several validation errors into one. Non-validation errors are returned as-is.
func Merge(entity string, errs ...error) error {
	out := &Error{Entity: entity}

	for _, err := range errs {
		if err == nil {
			continue
		}

		var verr *Error
		if !errors.As(err, &verr) {
			return err
		}

		out.Fields = append(out.Fields, verr.Fields...)
	}

	if len(out.Fields) == 0 {
		return nil
	}

	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}

	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "cnpj":
		return "must be a valid CNPJ formatted NN.NNN.NNN/NNNN-NN"
	case "cnpj_cpf":
		return "must be a valid CPF (11 digits) or CNPJ (NN.NNN.NNN/NNNN-NN)"
	case "yearmonth":
		return "must match YYYY-MM"
	case "required_with", "required_if":
		return "is required together with " + fe.Param()
	case "excluded_with":
		return "cannot be combined with " + fe.Param()
	default:
		return "failed rule " + fe.Tag()
	}
}

func entityName(entity any) string {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return lowerCamel(t.Name())
}

// lowerCamel lowers the leading capital run: "CnpjCpf" -> "cnpjCpf", "CNPJ" -> "cnpj", "AccountID" -> "accountID".
func lowerCamel(s string) string {
	r := []rune(s)
	for i := range r {
		if !unicode.IsUpper(r[i]) {
			break
		}

		if i > 0 && i+1 < len(r) && unicode.IsLower(r[i+1]) {
			break
		}

		r[i] = unicode.ToLower(r[i])
	}

	return string(r)
}
