package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// GenerateSalt генерирует криптографически случайную соль указанного размера
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	_, err := rand.Read(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateSaltBase64 генерирует криптографически случайную соль и возвращает ее в Base64
func GenerateSaltBase64() (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// DeriveAuthKey генерирует auth key из master password через Argon2id.
// Ключ детерминирован: одинаковые password+username+salt дают одинаковый
// ключ на любом устройстве, пароль при этом никогда не покидает клиента.
func DeriveAuthKey(masterPassword, username string, salt []byte) ([]byte, error) {
	if masterPassword == "" {
		return nil, fmt.Errorf("master password cannot be empty")
	}
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	input := []byte(masterPassword + username + "auth")
	authKey := argon2.IDKey(input, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	return authKey, nil
}

// DeriveAuthKeyFromBase64Salt генерирует auth key из Base64-кодированной соли
func DeriveAuthKeyFromBase64Salt(masterPassword, username, saltBase64 string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return DeriveAuthKey(masterPassword, username, salt)
}
