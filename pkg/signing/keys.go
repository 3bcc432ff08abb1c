package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

const (
	pemPrivateKey   = "PRIVATE KEY"
	pemECPrivateKey = "EC PRIVATE KEY"
	pemPublicKey    = "PUBLIC KEY"
)

// GenerateKey creates a new private key for the algorithm alg. A nil reader
// defaults to crypto/rand.
func GenerateKey(alg string, reader io.Reader) (crypto.Signer, error) {
	if reader == nil {
		reader = rand.Reader
	}
	switch alg {
	case AlgorithmEd25519:
		_, priv, err := ed25519.GenerateKey(reader)
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", alg, err)
		}
		return priv, nil
	case AlgorithmECDSAP256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), reader)
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", alg, err)
		}
		return priv, nil
	default:
		return nil, perrors.WithMetadata(perrors.CodeKeyError, "unsupported algorithm", map[string]string{"algorithm": alg})
	}
}

// ParsePrivateKey parses a PEM encoded PKCS#8 or SEC1 private key.
func ParsePrivateKey(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, perrors.New(perrors.CodeKeyError, "private key is not PEM encoded")
	}

	switch block.Type {
	case pemPrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, perrors.Wrap(perrors.CodeKeyError, "parse PKCS#8 private key", err)
		}
		switch k := key.(type) {
		case ed25519.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return k, nil
		default:
			return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("unsupported private key type %T", key))
		}
	case pemECPrivateKey:
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, perrors.Wrap(perrors.CodeKeyError, "parse EC private key", err)
		}
		return key, nil
	default:
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("unexpected PEM block %q for a private key", block.Type))
	}
}

// ParsePublicKey parses a PEM encoded PKIX public key.
func ParsePublicKey(data []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, perrors.New(perrors.CodeKeyError, "public key is not PEM encoded")
	}
	if block.Type != pemPublicKey {
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("unexpected PEM block %q for a public key", block.Type))
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeKeyError, "parse PKIX public key", err)
	}
	switch k := key.(type) {
	case ed25519.PublicKey:
		return k, nil
	case *ecdsa.PublicKey:
		return k, nil
	default:
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("unsupported public key type %T", key))
	}
}

// MarshalPrivateKey encodes key as a PKCS#8 PEM block.
func MarshalPrivateKey(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeKeyError, "marshal private key", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

// MarshalPublicKey encodes key as a PKIX PEM block.
func MarshalPublicKey(key crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeKeyError, "marshal public key", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
}

// KeyID identifies a public key: the lowercase hex SHA-256 of its PKIX DER
// encoding.
func KeyID(key crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", perrors.Wrap(perrors.CodeKeyError, "marshal public key", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:]), nil
}
