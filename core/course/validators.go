package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	contentKindTag  = "contentkind"
	contentKindText = "invalid content kind"

	kindRequiresURL = map[string]bool{KindVideo: true, KindPDF: true, KindLink: true}
)

// InitValidators registers the validators and translations of this package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(contentKindTag, contentKindValidation)
	core.RegisterCustomTranslation(validate, translator, contentKindTag, contentKindText)

	validate.RegisterStructValidation(newContentStructValidation, NewContent{})
}

func contentKindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range ContentKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// newContentStructValidation requires a URL for media kinds and a body for text contents.
func newContentStructValidation(sl validator.StructLevel) {
	nc, ok := sl.Current().Interface().(NewContent)
	if !ok {
		return
	}
	if kindRequiresURL[nc.Kind] && nc.URL == "" {
		sl.ReportError(nc.URL, "url", "URL", "required", "")
	}
	if nc.Kind == KindText && core.CleanString(nc.Body) == "" {
		sl.ReportError(nc.Body, "body", "Body", "required", "")
	}
}
