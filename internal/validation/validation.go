package validation

import (
	"regexp"

	"akshayapatra/internal/rbac"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// Register adds the domain validators to v:
//
//	staffrole  one of the assignable staff roles
//	pincode    six-digit Indian postal code
//	pan        Indian PAN, e.g. ABCDE1234F
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"staffrole": func(fl validator.FieldLevel) bool {
			return rbac.Role(fl.Field().String()).IsValid()
		},
		"pincode": func(fl validator.FieldLevel) bool {
			return pincodePattern.MatchString(fl.Field().String())
		},
		"pan": func(fl validator.FieldLevel) bool {
			return panPattern.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterWithGin installs the validators on gin's binding engine
func RegisterWithGin() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return Register(v)
	}
	return nil
}
