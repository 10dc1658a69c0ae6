package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	serialNumberRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-_/.]{1,149}$`)
	phoneNumberRe  = regexp.MustCompile(`^\+?\d{7,15}$`)
	iccidRe        = regexp.MustCompile(`^\d{18,22}$`)
)

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("serial_number", isSerialNumber); err != nil {
		return err
	}
	if err := v.RegisterValidation("phone_number", isPhoneNumber); err != nil {
		return err
	}
	if err := v.RegisterValidation("iccid", isICCID); err != nil {
		return err
	}
	return nil
}

// isSerialNumber - латиница, цифры и разделители, без пробелов
func isSerialNumber(fl validator.FieldLevel) bool {
	return serialNumberRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

func isPhoneNumber(fl validator.FieldLevel) bool {
	return phoneNumberRe.MatchString(fl.Field().String())
}

func isICCID(fl validator.FieldLevel) bool {
	return iccidRe.MatchString(fl.Field().String())
}
