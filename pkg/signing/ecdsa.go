package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

// ecdsaP256Algorithm signs with ECDSA over P-256 and SHA-256. Signatures
// are ASN.1 DER encoded and randomized.
type ecdsaP256Algorithm struct{}

func (a *ecdsaP256Algorithm) ID() string {
	return AlgorithmECDSAP256
}

func (a *ecdsaP256Algorithm) Sign(message []byte, key crypto.Signer) ([]byte, error) {
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok || ecKey == nil {
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("key must be *ecdsa.PrivateKey for %s, got %T", a.ID(), key))
	}
	if ecKey.Curve != elliptic.P256() {
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("ECDSA key must use P-256 for %s, got %s", a.ID(), ecKey.Curve.Params().Name))
	}

	hash := sha256.Sum256(message)
	signature, err := ecdsa.SignASN1(rand.Reader, ecKey, hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign with %s: %w", a.ID(), err)
	}
	return signature, nil
}

func (a *ecdsaP256Algorithm) Verify(message, signature []byte, key crypto.PublicKey) error {
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok || ecKey == nil {
		return perrors.New(perrors.CodeKeyError, fmt.Sprintf("key must be *ecdsa.PublicKey for %s, got %T", a.ID(), key))
	}
	if ecKey.Curve != elliptic.P256() {
		return perrors.New(perrors.CodeKeyError, fmt.Sprintf("ECDSA key must use P-256 for %s, got %s", a.ID(), ecKey.Curve.Params().Name))
	}
	if len(signature) == 0 {
		return perrors.New(perrors.CodeSignatureFormatError, "signature cannot be empty")
	}

	hash := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(ecKey, hash[:], signature) {
		return fmt.Errorf("%s signature verification failed", a.ID())
	}
	return nil
}
