package live

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	liveStatusTag  = "livestatus"
	liveStatusText = "invalid live status"
)

// InitValidators registers the validators and translations of this package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(liveStatusTag, liveStatusValidation)
	core.RegisterCustomTranslation(validate, translator, liveStatusTag, liveStatusText)
}

func liveStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}
