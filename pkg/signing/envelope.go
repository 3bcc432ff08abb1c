package signing

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/fragment-platform/blogify/pkg/digest"
	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/types"
)

// SignatureExt is appended to a package path to name its signature file.
const SignatureExt = ".sig"

const digestPrefix = digest.Algorithm + ":"

// maxSignatureSize bounds how much of a signature file ReadSignature loads.
const maxSignatureSize = 64 << 10

// SignaturePath returns the conventional signature location for a package.
func SignaturePath(pkgPath string) string {
	return pkgPath + SignatureExt
}

// MarshalSignature encodes sig as YAML.
func MarshalSignature(sig *types.Signature) ([]byte, error) {
	if sig == nil {
		return nil, perrors.New(perrors.CodeSignatureFormatError, "signature is nil")
	}
	b, err := yaml.Marshal(sig)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeSignatureFormatError, "encode signature", err)
	}
	return b, nil
}

// UnmarshalSignature decodes and validates a YAML signature artifact.
// Unknown fields are rejected.
func UnmarshalSignature(data []byte) (*types.Signature, error) {
	var sig types.Signature
	if err := yaml.UnmarshalStrict(data, &sig); err != nil {
		return nil, perrors.Wrap(perrors.CodeSignatureFormatError, "decode signature", err)
	}
	if _, _, _, err := decodeSignature(&sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// WriteSignature writes sig to path, replacing it atomically.
func WriteSignature(path string, sig *types.Signature) error {
	data, err := MarshalSignature(sig)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "create temporary signature", perrors.Path(dir), err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "write signature", perrors.Path(tmpPath), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "close signature", perrors.Path(tmpPath), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "move signature into place", perrors.Path(path), err)
	}
	return nil
}

// ReadSignature loads a signature artifact from path.
func ReadSignature(path string) (*types.Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perrors.WrapWithMetadata(perrors.CodeSignatureFormatError, "signature file not found", perrors.Path(path), err)
		}
		return nil, perrors.WrapWithMetadata(perrors.CodeIOFailure, "stat signature", perrors.Path(path), err)
	}
	if info.Size() > maxSignatureSize {
		return nil, perrors.WithMetadata(perrors.CodeSignatureFormatError, "signature file is too large", perrors.Path(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.WrapWithMetadata(perrors.CodeIOFailure, "read signature", perrors.Path(path), err)
	}
	sig, err := UnmarshalSignature(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

// decodeSignature checks the structure of sig and returns the digest it
// was issued for, its algorithm, and the raw signature bytes.
func decodeSignature(sig *types.Signature) (types.ContentDigest, Algorithm, []byte, error) {
	fail := func(msg string, cause error) (types.ContentDigest, Algorithm, []byte, error) {
		return types.ContentDigest{}, nil, nil, perrors.Wrap(perrors.CodeSignatureFormatError, msg, cause)
	}

	if sig == nil {
		return fail("signature is nil", nil)
	}
	if sig.Version != types.SignatureVersion {
		return fail(fmt.Sprintf("unsupported signature version %d", sig.Version), nil)
	}
	alg, err := GetAlgorithm(sig.Algorithm)
	if err != nil {
		return types.ContentDigest{}, nil, nil, err
	}
	hexDigest, ok := strings.CutPrefix(sig.Digest, digestPrefix)
	if !ok {
		return fail(fmt.Sprintf("digest must start with %q", digestPrefix), nil)
	}
	claimed, err := types.ParseContentDigest(hexDigest)
	if err != nil {
		return fail("invalid digest", err)
	}
	if sig.Value == "" {
		return fail("signature value is empty", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return fail("signature value is not base64", err)
	}
	return claimed, alg, raw, nil
}

// signedMessage is the byte string actually signed for a digest.
func signedMessage(algorithm string, d types.ContentDigest) []byte {
	return []byte("blogify-post-v1\n" + algorithm + "\n" + digestPrefix + d.String())
}
