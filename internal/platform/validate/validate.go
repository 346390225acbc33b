package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	apperrors "notegenius/internal/platform/errors"
)

const routePrefixTag = "route_prefix"

// Validator checks struct tags and renders field errors as English text.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	v := validator.New()
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Report config and JSON names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation(routePrefixTag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "/") && !strings.ContainsAny(s, "?# ")
	})
	_ = v.RegisterTranslation(routePrefixTag, translator,
		func(t ut.Translator) error {
			return t.Add(routePrefixTag, "{0} must be an absolute path prefix", false)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(routePrefixTag, fe.Field())
			return s
		},
	)
	return &Validator{validate: v, translator: translator}
}

// Struct validates s and wraps failures in apperrors.ErrInvalidInput.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Namespace()+": "+fe.Translate(v.translator))
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, strings.Join(msgs, "; "))
}
