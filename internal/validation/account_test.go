package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ana@example.com"))
	assert.ErrorIs(t, ValidateEmail(""), ErrEmailRequired)
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail("Ana <ana@example.com>"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail(strings.Repeat("a", 250)+"@x.io"), ErrEmailTooLong)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		err      error
	}{
		{"strong", "correct-horse-battery", nil},
		{"too short", "short", ErrPasswordTooShort},
		{"too long", strings.Repeat("x", 73), ErrPasswordTooLong},
		{"common pattern", "mypassword2024!", ErrPasswordCommon},
		{"portuguese pattern", "minhasenha-forte", ErrPasswordCommon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("  João  "))
	assert.ErrorIs(t, ValidateName("   "), ErrNameRequired)
	assert.ErrorIs(t, ValidateName(strings.Repeat("é", 101)), ErrNameTooLong)
	assert.NoError(t, ValidateName(strings.Repeat("é", 100)))
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(ErrPasswordCommon))
	assert.True(t, IsInputError(fmt.Errorf("signup: %w", ErrEmailInvalid)))
	assert.False(t, IsInputError(errors.New("database is locked")))
	assert.False(t, IsInputError(nil))
}
