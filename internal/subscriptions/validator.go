package subscriptions

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the longest accepted subscriber name, in characters.
const MaxNameLength = 256

// Candidate is a validated, normalised sign-up ready to be persisted.
type Candidate struct {
	Name  string
	Email string
}

type signupFields struct {
	Name  string `field:"name" validate:"required,utf8,max=256,nocontrol"`
	Email string `field:"email" validate:"required,utf8,maxbytes=254,email,dotdomain"`
}

var reasons = map[string]string{
	"required":  "must not be empty",
	"utf8":      "must be valid UTF-8",
	"max":       "is too long",
	"maxbytes":  "is too long",
	"nocontrol": "must not contain control characters",
	"email":     "is not a valid email address",
	"dotdomain": "is not a valid email address",
}

// Validator checks raw sign-up input. It has no side effects and is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the sign-up rules registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("utf8", validUTF8)
	_ = v.RegisterValidation("maxbytes", maxBytes)
	_ = v.RegisterValidation("nocontrol", noControlChars)
	_ = v.RegisterValidation("dotdomain", domainHasSeparator)

	return &Validator{validate: v}
}

// Validate trims and normalises the raw values and checks them.
// A failure is returned as *ValidationError naming the first rejected field.
func (v *Validator) Validate(rawName, rawEmail string) (Candidate, error) {
	fields := signupFields{
		Name:  norm.NFC.String(strings.TrimSpace(rawName)),
		Email: strings.TrimSpace(rawEmail),
	}

	if err := v.validate.Struct(fields); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok || len(errs) == 0 {
			return Candidate{}, &ValidationError{Field: "form", Reason: err.Error()}
		}
		first := errs[0]
		reason, ok := reasons[first.Tag()]
		if !ok {
			reason = first.Tag()
		}
		return Candidate{}, &ValidationError{Field: first.Field(), Reason: reason}
	}

	return Candidate{Name: fields.Name, Email: fields.Email}, nil
}

func validUTF8(fl validator.FieldLevel) bool {
	return utf8.ValidString(fl.Field().String())
}

// maxBytes limits the encoded length, where max counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func noControlChars(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsControl) == -1
}

func domainHasSeparator(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return false
	}
	domain := s[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}
