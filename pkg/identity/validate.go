package identity

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	accessKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]{20}$`)
	secretKeyPattern = regexp.MustCompile(`^[A-Za-z0-9+/]{40}$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("nsfs_access_key", func(fl validator.FieldLevel) bool {
			return accessKeyPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("nsfs_secret_key", func(fl validator.FieldLevel) bool {
			return secretKeyPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct runs struct-tag validation (the `validate:"..."` tags on
// account and bucket option structs) using the shared validator instance,
// which knows the nsfs_access_key/nsfs_secret_key custom tags in addition
// to go-playground/validator's built-ins.
func ValidateStruct(v any) error {
	if err := getValidator().Struct(v); err != nil {
		return fmt.Errorf("identity: validation failed: %w", err)
	}
	return nil
}

// ValidateAccessKey reports whether s matches the access key shape
// (20 alphanumeric characters).
func ValidateAccessKey(s string) bool {
	return accessKeyPattern.MatchString(s)
}

// ValidateSecretKey reports whether s matches the secret key shape
// (40 base64-alphabet characters).
func ValidateSecretKey(s string) bool {
	return secretKeyPattern.MatchString(s)
}
