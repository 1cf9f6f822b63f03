package validation

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrEmailRequired    = errors.New("e-mail é obrigatório")
	ErrEmailTooLong     = errors.New("e-mail muito longo (máximo 254 caracteres)")
	ErrEmailInvalid     = errors.New("formato de e-mail inválido")
	ErrPasswordTooShort = errors.New("a senha deve ter pelo menos 12 caracteres")
	ErrPasswordTooLong  = errors.New("a senha não pode exceder 72 caracteres")
	ErrPasswordCommon   = errors.New("senha muito comum, escolha uma mais forte")
	ErrNameRequired     = errors.New("nome é obrigatório")
	ErrNameTooLong      = errors.New("nome muito longo (máximo 100 caracteres)")
)

var commonPasswordPatterns = []string{
	"password", "senha", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "sunshine",
}

// ValidateEmail checks length limits (RFC 5321) and parses the address with
// net/mail.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}

	return nil
}

// ValidatePassword enforces 12..72 bytes (bcrypt truncates beyond 72) and
// rejects well known weak patterns.
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}

	lower := strings.ToLower(password)
	for _, pattern := range commonPasswordPatterns {
		if strings.Contains(lower, pattern) {
			return ErrPasswordCommon
		}
	}

	return nil
}

func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return ErrNameRequired
	}
	if len([]rune(trimmed)) > 100 {
		return ErrNameTooLong
	}

	return nil
}

// IsInputError reports whether err is one of the account field errors above,
// whose messages are safe to show to the user.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrEmailRequired, ErrEmailTooLong, ErrEmailInvalid,
		ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordCommon,
		ErrNameRequired, ErrNameTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
