package types

import "time"

// SignatureVersion is the current signature artifact schema version.
const SignatureVersion = 1

// Signature is the detached signature artifact stored next to a package.
// It names the algorithm and the digest it was issued for so it can be
// checked without any other context.
type Signature struct {
	Version   int       `yaml:"version"`
	Algorithm string    `yaml:"algorithm"`
	Digest    string    `yaml:"digest"` // "sha256:<lowercase hex>"
	KeyID     string    `yaml:"key_id"`
	SignedAt  time.Time `yaml:"signed_at"`
	Value     string    `yaml:"signature"` // base64 (standard, padded)
}

// VerifyStatus is the outcome of checking a signature against a package.
type VerifyStatus int

const (
	// StatusUnverifiable means the signature or package could not be
	// evaluated at all. It is always accompanied by an error.
	StatusUnverifiable VerifyStatus = iota
	// StatusValid means the recomputed digest matches and the signature checks out.
	StatusValid
	// StatusInvalid means the signature is well formed but does not match.
	StatusInvalid
)

func (s VerifyStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unverifiable"
	}
}
