package dto

import (
	"html"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stellar/go/strkey"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("stellar_account", validateStellarAccount)
		_ = v.RegisterValidation("stellar_contract", validateStellarContract)
		_ = v.RegisterValidation("stellar_address", validateStellarAddress)
	}
}

// validateStellarAccount accepts a G... ed25519 account strkey.
func validateStellarAccount(fl validator.FieldLevel) bool {
	return strkey.IsValidEd25519PublicKey(fl.Field().String())
}

// validateStellarContract accepts a C... contract strkey.
func validateStellarContract(fl validator.FieldLevel) bool {
	return strkey.IsValidContractAddress(fl.Field().String())
}

// validateStellarAddress accepts either form; token recipients may be
// accounts or contracts.
func validateStellarAddress(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strkey.IsValidEd25519PublicKey(s) || strkey.IsValidContractAddress(s)
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Struct:
			sanitizeFields(f)
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
