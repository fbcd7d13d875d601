// Package signing attaches BIP-340 Schnorr signatures to report bodies so
// that a consumer holding the server's public key can tell a report was
// produced by this deployment and not altered in transit.
package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"golang.org/x/crypto/hkdf"
)

const keyDerivationInfo = "a11y-server report signing v1"

// ErrEmptySecret is returned when no secret is configured.
var ErrEmptySecret = errors.New("signing secret is empty")

// Signer signs report bodies with a key derived from a shared secret.
type Signer struct {
	priv *btcec.PrivateKey
	pub  string
}

// NewSigner derives a secp256k1 key from secret with HKDF-SHA256.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	keyBytes := make([]byte, 32)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyDerivationInfo))
	if _, err := io.ReadFull(reader, keyBytes); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	priv, pub := btcec.PrivKeyFromBytes(keyBytes)
	return &Signer{
		priv: priv,
		pub:  hex.EncodeToString(schnorr.SerializePubKey(pub)),
	}, nil
}

// PublicKey returns the x-only public key as hex.
func (s *Signer) PublicKey() string {
	return s.pub
}

// Sign returns the hex signature over SHA-256(body).
func (s *Signer) Sign(body []byte) (string, error) {
	digest := sha256.Sum256(body)
	sig, err := schnorr.Sign(s.priv, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign report: %w", err)
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks a hex signature produced by Sign against a hex public key.
func Verify(body []byte, sigHex, pubHex string) bool {
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	pubBytes, err := hex.DecodeString(pubHex)
	if err != nil {
		return false
	}

	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}
	pub, err := schnorr.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(body)
	return sig.Verify(digest[:], pub)
}
