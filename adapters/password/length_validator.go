package password

import (
	"fmt"

	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// LengthValidator enforces a minimum password length. Richer strength
// policies live outside the core and plug in through the same port.
type LengthValidator struct {
	min int
}

// NewLengthValidator creates a validator requiring at least min characters.
func NewLengthValidator(min int) ports.PasswordValidator {
	return &LengthValidator{min: min}
}

// Validate checks the password against the policy.
func (v *LengthValidator) Validate(password string) error {
	if len(password) < v.min {
		return fmt.Errorf("password must be at least %d characters", v.min)
	}
	return nil
}
