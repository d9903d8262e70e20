package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// Setup configures Gin's binding validator: field names in error messages come
// from JSON tags, and messages are rendered through the English translator.
// Call once at startup, before the router is built.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(jsonFieldName)

	locale := en.New()
	trans, _ = ut.New(locale, locale).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(v, trans)
}

// jsonFieldName reports the name a field has on the wire, so validation
// errors reference "access_code" rather than "AccessCode".
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// Bind decodes the JSON body into dst and validates it. It returns nil on
// success, or a field -> message map suitable for FailWithFields. Errors that
// are not validation errors (malformed JSON, wrong types) come back under the
// "detail" key.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Translate(trans)
	}
	return fields
}
