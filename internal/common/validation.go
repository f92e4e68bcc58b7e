package common

import (
	"fmt"
	"regexp"
	"strings"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{5,20}$`)

func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidRequest)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: full name must be at most 100 characters", ErrInvalidRequest)
	}
	return nil
}

// ValidatePhone accepts digits with an optional leading +. The literal
// "admin" is allowed because the operator account logs in with it.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidRequest)
	}
	if phone == AdminPhone {
		return nil
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("%w: invalid phone number", ErrInvalidRequest)
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidRequest)
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return fmt.Errorf("%w: password is too long", ErrInvalidRequest)
	}
	return nil
}

// AdminPhone marks the operator account, hidden from chat lists.
const AdminPhone = "admin"
