// Package secrets provides the symmetric codec used for secure variable
// values. Values are JSON-serialized, AES-CBC encrypted with a fresh random
// IV per call and stored as base64(IV || ciphertext).
package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const keySize = 32

// Codec encrypts and decrypts secure variable values with a key derived
// from a configured secret. It does not manage key rotation.
type Codec struct {
	key []byte
}

// NewCodec derives a fixed-length key from the configured secret. Secrets
// shorter than the key size are right-padded.
func NewCodec(secret string) *Codec {
	key := make([]byte, keySize)
	copy(key, secret)

	return &Codec{key: key}
}

// Encrypt serializes value as JSON and encrypts it. The output embeds the
// random IV, so encrypting the same value twice yields different strings.
func (c *Codec) Encrypt(value any) (string, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to serialize secure value: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	padded := pad(plaintext, block.BlockSize())

	buf := make([]byte, block.BlockSize()+len(padded))
	iv := buf[:block.BlockSize()]

	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[block.BlockSize():], padded)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt. Any failure (malformed base64, bad padding,
// decode error) yields an empty string rather than an error: resolution
// treats "empty" as "not yet set".
func (c *Codec) Decrypt(value string) any {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return ""
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return ""
	}

	if len(raw) < 2*block.BlockSize() || len(raw)%block.BlockSize() != 0 {
		return ""
	}

	iv := raw[:block.BlockSize()]
	ciphertext := raw[block.BlockSize():]

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, ok := unpad(plaintext, block.BlockSize())
	if !ok {
		return ""
	}

	var decoded any
	if err := json.Unmarshal(plaintext, &decoded); err != nil {
		return ""
	}

	return decoded
}

// pad applies PKCS#7 padding.
func pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize

	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// unpad removes PKCS#7 padding, reporting false when the padding is invalid.
func unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, false
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, false
		}
	}

	return data[:len(data)-padding], true
}
