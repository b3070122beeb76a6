// Package cipher шифрует чувствительные поля карт алгоритмом AES-GCM.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMalformed возвращается при расшифровке повреждённых данных.
var ErrMalformed = errors.New("malformed ciphertext")

// AESGCM шифрует строки ключом AES-128/192/256. Результат кодируется как base64(nonce || ciphertext).
type AESGCM struct {
	aead stdcipher.AEAD
}

// New создаёт шифратор из ключа в base64.
func New(base64Key string) (*AESGCM, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return NewFromKey(key)
}

// NewFromKey создаёт шифратор из сырого ключа.
func NewFromKey(key []byte) (*AESGCM, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &AESGCM{aead: aead}, nil
}

// NewRandom создаёт шифратор со случайным ключом. Данные, зашифрованные им,
// нельзя расшифровать после перезапуска процесса.
func NewRandom() (*AESGCM, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewFromKey(key)
}

// Encrypt шифрует строку со случайным nonce.
func (c *AESGCM) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt расшифровывает результат Encrypt.
func (c *AESGCM) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	size := c.aead.NonceSize()
	if len(data) < size {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, data[:size], data[size:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(plain), nil
}
