package library

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	resourceKindTag  = "resourcekind"
	resourceKindText = "invalid resource kind"
)

// InitValidators registers the validators and translations of this package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(resourceKindTag, resourceKindValidation)
	core.RegisterCustomTranslation(validate, translator, resourceKindTag, resourceKindText)
}

func resourceKindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
