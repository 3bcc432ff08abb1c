package signing

import (
	"crypto"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"

	"github.com/fragment-platform/blogify/pkg/digest"
	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/types"
)

// Option configures Sign and Verify.
type Option func(*config)

type config struct {
	signedAt time.Time
	logger   zerolog.Logger
}

// WithSignedAt fixes the timestamp recorded in the signature.
func WithSignedAt(t time.Time) Option {
	return func(c *config) {
		c.signedAt = t
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.signedAt.IsZero() {
		cfg.signedAt = time.Now()
	}
	cfg.signedAt = cfg.signedAt.UTC().Truncate(time.Second)
	return cfg
}

// Sign computes the digest of the package at pkgPath and signs it with key.
// The algorithm is chosen from the key type.
func Sign(pkgPath string, key crypto.Signer, opts ...Option) (*types.Signature, error) {
	cfg := newConfig(opts)

	if key == nil {
		return nil, perrors.New(perrors.CodeKeyError, "signing key is nil")
	}
	alg, err := AlgorithmForKey(key)
	if err != nil {
		return nil, err
	}
	keyID, err := KeyID(key.Public())
	if err != nil {
		return nil, err
	}

	d, err := digest.File(pkgPath)
	if err != nil {
		return nil, err
	}

	raw, err := alg.Sign(signedMessage(alg.ID(), d), key)
	if err != nil {
		return nil, err
	}

	cfg.logger.Info().
		Str("path", pkgPath).
		Str("algorithm", alg.ID()).
		Str("key_id", keyID).
		Str("digest", d.String()).
		Msg("Package signed")

	return &types.Signature{
		Version:   types.SignatureVersion,
		Algorithm: alg.ID(),
		Digest:    digestPrefix + d.String(),
		KeyID:     keyID,
		SignedAt:  cfg.signedAt,
		Value:     base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// Verify checks sig against the package at pkgPath and the public key pub.
//
// Valid and Invalid are returned with a nil error. Invalid covers a
// signature that does not match the key, a package whose content no longer
// matches the signed digest, and a package with a corrupt entry.
// Unverifiable is always returned with an error explaining why no decision
// could be made: a malformed signature, unusable key material, or a package
// that could not be read at all.
func Verify(pkgPath string, sig *types.Signature, pub crypto.PublicKey, opts ...Option) (types.VerifyStatus, error) {
	cfg := newConfig(opts)
	log := cfg.logger.With().Str("path", pkgPath).Logger()

	claimed, alg, raw, err := decodeSignature(sig)
	if err != nil {
		return types.StatusUnverifiable, err
	}
	if pub == nil {
		return types.StatusUnverifiable, perrors.New(perrors.CodeKeyError, "public key is nil")
	}

	cryptoOK := true
	if err := alg.Verify(signedMessage(alg.ID(), claimed), raw, pub); err != nil {
		switch perrors.CodeOf(err) {
		case perrors.CodeKeyError, perrors.CodeSignatureFormatError:
			return types.StatusUnverifiable, err
		}
		log.Debug().Err(err).Msg("Signature does not match key")
		cryptoOK = false
	}

	actual, err := digest.File(pkgPath)
	if err != nil {
		if perrors.HasCode(err, perrors.CodeCorruptEntry) {
			log.Debug().Err(err).Msg("Package has a corrupt entry")
			return types.StatusInvalid, nil
		}
		return types.StatusUnverifiable, perrors.WrapWithMetadata(perrors.CodeUnverifiable, "package could not be read", perrors.Path(pkgPath), err)
	}

	if actual != claimed {
		log.Debug().
			Str("claimed", claimed.String()).
			Str("actual", actual.String()).
			Msg("Package digest does not match signature")
		return types.StatusInvalid, nil
	}
	if !cryptoOK {
		return types.StatusInvalid, nil
	}
	return types.StatusValid, nil
}
