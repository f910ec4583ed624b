// Package encryption implements at-rest encryption for direct messages.
// Each conversation gets its own AES-256 key derived from a single master
// key via HKDF-SHA256 with the conversation id as the info string, so a
// leaked per-conversation key exposes only that conversation.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32
	nonceSize = 12
	tagSize   = 16
)

// Encryptor derives per-conversation keys and seals/opens message
// envelopes. The stored envelope layout is nonce || ciphertext || tag.
type Encryptor struct {
	master []byte
}

// New builds an Encryptor from the configured master key. A 64-character
// hex string is decoded to its 32 raw bytes; anything else is taken as
// UTF-8 and zero-padded or truncated to 32 bytes.
func New(masterKey string) *Encryptor {
	return &Encryptor{master: normalizeMasterKey(masterKey)}
}

func normalizeMasterKey(s string) []byte {
	if len(s) == 2*keySize {
		if decoded, err := hex.DecodeString(s); err == nil {
			return decoded
		}
	}
	key := make([]byte, keySize)
	copy(key, s)
	return key
}

// deriveKey computes the conversation key: HKDF-SHA256 with empty salt,
// the master key as input material, and the conversation id as info.
func (e *Encryptor) deriveKey(conversationID string) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, e.master, nil, []byte(conversationID))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive conversation key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under the conversation's derived key with a
// fresh random nonce.
func (e *Encryptor) Encrypt(conversationID string, plaintext []byte) ([]byte, error) {
	gcm, err := e.aead(conversationID)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a stored envelope. Fails if the envelope is truncated,
// tampered with, or sealed under a different conversation's key.
func (e *Encryptor) Decrypt(conversationID string, envelope []byte) ([]byte, error) {
	if len(envelope) < nonceSize+tagSize {
		return nil, fmt.Errorf("envelope too short: %d bytes", len(envelope))
	}
	gcm, err := e.aead(conversationID)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, envelope[:nonceSize], envelope[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	return plaintext, nil
}

func (e *Encryptor) aead(conversationID string) (cipher.AEAD, error) {
	key, err := e.deriveKey(conversationID)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
