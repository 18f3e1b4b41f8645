// Package crypto seals export archives with a password.
//
// Sealed layout: magic "NLEX" | format | salt(16) | nonce(12) | AES-256-GCM ciphertext.
// The key is derived with Argon2id. The header is authenticated as
// additional data, so tampering with it fails decryption.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	formatArgon2idGCM = byte(0x01)
	saltSize          = 16
	nonceSize         = 12
	headerSize        = 4 + 1 + saltSize + nonceSize
)

var magic = []byte("NLEX")

var (
	ErrMalformed     = errors.New("sealed data is malformed")
	ErrWrongPassword = errors.New("decryption failed: wrong password or corrupted data")
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrUnknownFormat = errors.New("unsupported sealed format")
)

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under password.
func Seal(plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	header := make([]byte, 0, headerSize)
	header = append(header, magic...)
	header = append(header, formatArgon2idGCM)

	random := make([]byte, saltSize+nonceSize)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	header = append(header, random...)

	salt := header[5 : 5+saltSize]
	nonce := header[5+saltSize:]

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(plaintext)+gcm.Overhead())
	copy(out, header)
	return gcm.Seal(out, nonce, plaintext, header), nil
}

// Open reverses Seal.
func Open(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < headerSize+16 || !bytes.Equal(sealed[:4], magic) {
		return nil, ErrMalformed
	}
	if sealed[4] != formatArgon2idGCM {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, sealed[4])
	}

	header := sealed[:headerSize]
	salt := header[5 : 5+saltSize]
	nonce := header[5+saltSize:]

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed[headerSize:], header)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}
