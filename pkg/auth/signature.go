package auth

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Wallet signatures are base64 of flag(1) || signature(64) || pubkey(32).
// The flag selects the scheme; only Ed25519 is in use. The signature
// covers the BLAKE2b-256 digest of the challenge message, and the wallet
// address is 0x-prefixed hex of BLAKE2b-256(flag || pubkey).
const (
	flagEd25519 byte = 0x00

	signatureLen = 1 + ed25519.SignatureSize + ed25519.PublicKeySize
)

// Verifier checks that a signature over message was produced by the
// holder of walletAddress.
type Verifier interface {
	Verify(message []byte, signature, walletAddress string) error
}

// WalletVerifier is the production Verifier.
type WalletVerifier struct{}

func NewWalletVerifier() *WalletVerifier {
	return &WalletVerifier{}
}

func (v *WalletVerifier) Verify(message []byte, signature, walletAddress string) error {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != signatureLen {
		return fmt.Errorf("invalid signature length: %d", len(raw))
	}
	flag := raw[0]
	if flag != flagEd25519 {
		return fmt.Errorf("unsupported signature scheme: 0x%02x", flag)
	}
	sig := raw[1 : 1+ed25519.SignatureSize]
	pubkey := raw[1+ed25519.SignatureSize:]

	if !strings.EqualFold(walletAddress, DeriveAddress(flag, pubkey)) {
		return fmt.Errorf("signature public key does not match wallet address")
	}

	digest := blake2b.Sum256(message)
	if !ed25519.Verify(ed25519.PublicKey(pubkey), digest[:], sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

// DeriveAddress computes the wallet address owned by a public key.
func DeriveAddress(flag byte, pubkey []byte) string {
	var buf bytes.Buffer
	buf.WriteByte(flag)
	buf.Write(pubkey)
	digest := blake2b.Sum256(buf.Bytes())
	return "0x" + hex.EncodeToString(digest[:])
}

// Sign produces a wallet signature for message. Test helper for the
// scheme; clients sign in their wallets.
func Sign(message []byte, priv ed25519.PrivateKey) string {
	digest := blake2b.Sum256(message)
	sig := ed25519.Sign(priv, digest[:])
	pub := priv.Public().(ed25519.PublicKey)

	raw := make([]byte, 0, signatureLen)
	raw = append(raw, flagEd25519)
	raw = append(raw, sig...)
	raw = append(raw, pub...)
	return base64.StdEncoding.EncodeToString(raw)
}
