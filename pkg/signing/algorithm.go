// Package signing signs and verifies post packages.
//
// A signature is always issued over a digest recomputed from the package on
// disk, never over a digest supplied by the caller, and verification
// recomputes the digest again before checking it. The signed message is
// domain separated:
//
//	blogify-post-v1\n<algorithm>\nsha256:<hex digest>
//
// Supported algorithms:
//   - ed25519 (default)
//   - ecdsa-p256-sha256
package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"fmt"
	"sort"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

const (
	AlgorithmEd25519   = "ed25519"
	AlgorithmECDSAP256 = "ecdsa-p256-sha256"
)

// Algorithm is a signature algorithm usable for package signatures.
//
// Sign and Verify report unusable key material with a KEY_ERROR coded error
// and malformed signature bytes with SIGNATURE_FORMAT_ERROR. Any other error
// returned by Verify means the signature does not match.
type Algorithm interface {
	// ID returns the identifier recorded in the signature artifact.
	ID() string

	// Sign signs message with key.
	Sign(message []byte, key crypto.Signer) ([]byte, error)

	// Verify checks signature over message against key.
	Verify(message, signature []byte, key crypto.PublicKey) error
}

var algorithmRegistry = make(map[string]Algorithm)

// RegisterAlgorithm adds alg to the registry. Registering the same ID twice
// is a programming error and panics.
func RegisterAlgorithm(alg Algorithm) {
	id := alg.ID()
	if _, exists := algorithmRegistry[id]; exists {
		panic(fmt.Sprintf("algorithm %q already registered", id))
	}
	algorithmRegistry[id] = alg
}

// GetAlgorithm looks up a registered algorithm by ID.
func GetAlgorithm(id string) (Algorithm, error) {
	if id == "" {
		return nil, perrors.New(perrors.CodeSignatureFormatError, "algorithm ID cannot be empty")
	}
	alg, exists := algorithmRegistry[id]
	if !exists {
		return nil, perrors.WithMetadata(perrors.CodeSignatureFormatError, "unsupported algorithm", map[string]string{"algorithm": id})
	}
	return alg, nil
}

// SupportedAlgorithms returns the registered algorithm IDs, sorted.
func SupportedAlgorithms() []string {
	ids := make([]string, 0, len(algorithmRegistry))
	for id := range algorithmRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AlgorithmForKey picks the algorithm matching a private key.
func AlgorithmForKey(key crypto.Signer) (Algorithm, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey:
		return GetAlgorithm(AlgorithmEd25519)
	case *ecdsa.PrivateKey:
		if k.Curve == elliptic.P256() {
			return GetAlgorithm(AlgorithmECDSAP256)
		}
		return nil, perrors.WithMetadata(perrors.CodeKeyError, "unsupported ECDSA curve", map[string]string{"curve": k.Curve.Params().Name})
	default:
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("unsupported private key type %T", key))
	}
}

func init() {
	RegisterAlgorithm(&ed25519Algorithm{})
	RegisterAlgorithm(&ecdsaP256Algorithm{})
}
