package auth

import (
	"fmt"
	"socialchat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateClaims checks the identity carried by a token.
func ValidateClaims(claims *CustomClaims) error {
	if err := validate.Struct(claims); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	return nil
}
