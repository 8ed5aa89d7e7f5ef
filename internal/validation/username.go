package validation

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
	// MinPasswordLen минимальная длина master password
	MinPasswordLen = 12
	// MaxDisplayNameLen максимальная длина отображаемого имени
	MaxDisplayNameLen = 64
)

// usernameRe допустимый формат username: латиница, цифры, подчеркивание
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername проверяет имя учетной записи. Username участвует в
// деривации auth key и попадает в URL (/auth/salt/{username}), поэтому
// алфавит жестко ограничен: [a-zA-Z0-9_], длина 3-32.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("username is required")
	case len(username) < MinUsernameLen:
		return fmt.Errorf("username must be at least %d characters", MinUsernameLen)
	case len(username) > MaxUsernameLen:
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLen)
	case !usernameRe.MatchString(username):
		return fmt.Errorf("username may only contain latin letters, digits and underscore")
	}
	return nil
}

// ValidatePassword проверяет master password: минимум 12 символов,
// алфавит не ограничивается
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return fmt.Errorf("master password is required")
	case len(password) < MinPasswordLen:
		return fmt.Errorf("master password must be at least %d characters", MinPasswordLen)
	}
	return nil
}

// ValidateDisplayName проверяет отображаемое имя участника доски.
// Пустое имя допустимо (сервер подставит username); любой печатный
// unicode разрешен, управляющие символы — нет.
func ValidateDisplayName(name string) error {
	if name == "" {
		return nil
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return fmt.Errorf("display name must be at most %d characters", MaxDisplayNameLen)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("display name must not contain control characters")
		}
	}
	return nil
}
