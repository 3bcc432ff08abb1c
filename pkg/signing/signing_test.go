package signing_test

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fragment-platform/blogify/pkg/bundler"
	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/signing"
	"github.com/fragment-platform/blogify/pkg/types"
)

var fixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

const body = "<p>signed body</p>"

// buildPackage writes a one-document package with the given body and
// returns its path.
func buildPackage(t *testing.T, dir, content string, overwrite bool) string {
	t.Helper()

	src := filepath.Join(dir, "index.html")
	if err := os.WriteFile(src, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	result, err := bundler.Build(types.BuildInput{
		Metadata: types.PostMetadata{Name: "Signed", Slug: "signed", Published: fixedTime},
		Document: types.FileRef{Path: src},
	},
		bundler.WithOutputDir(filepath.Join(dir, "out")),
		bundler.WithTimestamp(fixedTime),
		bundler.WithOverwrite(overwrite),
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return result.ArchivePath
}

func generate(t *testing.T, alg string) crypto.Signer {
	t.Helper()
	key, err := signing.GenerateKey(alg, nil)
	if err != nil {
		t.Fatalf("GenerateKey(%s) failed: %v", alg, err)
	}
	return key
}

func TestSignVerifyRoundTrip(t *testing.T) {
	for _, alg := range signing.SupportedAlgorithms() {
		t.Run(alg, func(t *testing.T) {
			pkg := buildPackage(t, t.TempDir(), body, false)
			key := generate(t, alg)

			sig, err := signing.Sign(pkg, key, signing.WithSignedAt(fixedTime))
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}
			if sig.Algorithm != alg {
				t.Errorf("Algorithm = %q, want %q", sig.Algorithm, alg)
			}
			if !strings.HasPrefix(sig.Digest, "sha256:") {
				t.Errorf("Digest %q lacks sha256: prefix", sig.Digest)
			}
			if !sig.SignedAt.Equal(fixedTime) {
				t.Errorf("SignedAt = %v, want %v", sig.SignedAt, fixedTime)
			}
			wantID, _ := signing.KeyID(key.Public())
			if sig.KeyID != wantID {
				t.Errorf("KeyID = %q, want %q", sig.KeyID, wantID)
			}

			status, err := signing.Verify(pkg, sig, key.Public())
			if err != nil {
				t.Fatalf("Verify returned error: %v", err)
			}
			if status != types.StatusValid {
				t.Errorf("status = %v, want valid", status)
			}
		})
	}
}

func TestSignatureFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, dir, body, false)
	key := generate(t, signing.AlgorithmEd25519)

	sig, err := signing.Sign(pkg, key, signing.WithSignedAt(fixedTime))
	if err != nil {
		t.Fatal(err)
	}
	sigPath := signing.SignaturePath(pkg)
	if err := signing.WriteSignature(sigPath, sig); err != nil {
		t.Fatalf("WriteSignature failed: %v", err)
	}

	loaded, err := signing.ReadSignature(sigPath)
	if err != nil {
		t.Fatalf("ReadSignature failed: %v", err)
	}
	if loaded.Version != sig.Version || loaded.Algorithm != sig.Algorithm ||
		loaded.Digest != sig.Digest || loaded.KeyID != sig.KeyID || loaded.Value != sig.Value ||
		!loaded.SignedAt.Equal(sig.SignedAt) {
		t.Errorf("loaded signature %+v differs from written %+v", loaded, sig)
	}

	status, err := signing.Verify(pkg, loaded, key.Public())
	if err != nil || status != types.StatusValid {
		t.Errorf("Verify = %v, %v; want valid", status, err)
	}
}

func TestVerifyDetectsRebuiltContent(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, dir, body, false)
	key := generate(t, signing.AlgorithmEd25519)

	sig, err := signing.Sign(pkg, key)
	if err != nil {
		t.Fatal(err)
	}

	buildPackage(t, dir, "<p>signed bodY</p>", true)

	status, err := signing.Verify(pkg, sig, key.Public())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("status = %v, want invalid", status)
	}
}

func TestVerifyDetectsFlippedByte(t *testing.T) {
	pkg := buildPackage(t, t.TempDir(), body, false)
	key := generate(t, signing.AlgorithmECDSAP256)

	sig, err := signing.Sign(pkg, key)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(pkg)
	if err != nil {
		t.Fatal(err)
	}
	i := bytes.Index(data, []byte(body))
	if i < 0 {
		t.Fatal("document body not found in stored package")
	}
	data[i+3] ^= 0x01
	if err := os.WriteFile(pkg, data, 0644); err != nil {
		t.Fatal(err)
	}

	status, err := signing.Verify(pkg, sig, key.Public())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("status = %v, want invalid", status)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	pkg := buildPackage(t, t.TempDir(), body, false)
	key := generate(t, signing.AlgorithmEd25519)
	other := generate(t, signing.AlgorithmEd25519)

	sig, err := signing.Sign(pkg, key)
	if err != nil {
		t.Fatal(err)
	}

	status, err := signing.Verify(pkg, sig, other.Public())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("status = %v, want invalid", status)
	}
}

func TestVerifyUnverifiable(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, dir, body, false)
	key := generate(t, signing.AlgorithmEd25519)
	ecKey := generate(t, signing.AlgorithmECDSAP256)

	good, err := signing.Sign(pkg, key)
	if err != nil {
		t.Fatal(err)
	}

	mutate := func(f func(*types.Signature)) *types.Signature {
		s := *good
		f(&s)
		return &s
	}

	tests := []struct {
		name string
		path string
		sig  *types.Signature
		pub  crypto.PublicKey
		code perrors.Code
	}{
		{"nil signature", pkg, nil, key.Public(), perrors.CodeSignatureFormatError},
		{"bad base64", pkg, mutate(func(s *types.Signature) { s.Value = "not base64!" }), key.Public(), perrors.CodeSignatureFormatError},
		{"truncated value", pkg, mutate(func(s *types.Signature) { s.Value = "AAAA" }), key.Public(), perrors.CodeSignatureFormatError},
		{"unknown algorithm", pkg, mutate(func(s *types.Signature) { s.Algorithm = "rsa-pss" }), key.Public(), perrors.CodeSignatureFormatError},
		{"bad digest prefix", pkg, mutate(func(s *types.Signature) { s.Digest = strings.Replace(s.Digest, "sha256:", "md5:", 1) }), key.Public(), perrors.CodeSignatureFormatError},
		{"unsupported version", pkg, mutate(func(s *types.Signature) { s.Version = 2 }), key.Public(), perrors.CodeSignatureFormatError},
		{"key type mismatch", pkg, good, ecKey.Public(), perrors.CodeKeyError},
		{"nil key", pkg, good, nil, perrors.CodeKeyError},
		{"missing package", filepath.Join(dir, "missing.post"), good, key.Public(), perrors.CodeUnverifiable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := signing.Verify(tt.path, tt.sig, tt.pub)
			if status != types.StatusUnverifiable {
				t.Errorf("status = %v, want unverifiable", status)
			}
			if err == nil {
				t.Fatal("expected an error with unverifiable status")
			}
			if !perrors.HasCode(err, tt.code) {
				t.Errorf("error %v does not carry code %s", err, tt.code)
			}
		})
	}
}

func TestVerifyNotAPackage(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, dir, body, false)
	key := generate(t, signing.AlgorithmEd25519)
	sig, err := signing.Sign(pkg, key)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(pkg, []byte("plain text, not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	status, err := signing.Verify(pkg, sig, key.Public())
	if status != types.StatusUnverifiable || err == nil {
		t.Fatalf("Verify = %v, %v; want unverifiable with error", status, err)
	}
	if !perrors.HasCode(err, perrors.CodeNotAPackage) {
		t.Errorf("error %v should wrap NOT_A_PACKAGE", err)
	}
}

func TestSignErrors(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, dir, body, false)

	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := signing.Sign(pkg, p384); !perrors.HasCode(err, perrors.CodeKeyError) {
		t.Errorf("P-384 key: got %v, want KEY_ERROR", err)
	}
	if _, err := signing.Sign(pkg, nil); !perrors.HasCode(err, perrors.CodeKeyError) {
		t.Errorf("nil key: got %v, want KEY_ERROR", err)
	}

	key := generate(t, signing.AlgorithmEd25519)
	if _, err := signing.Sign(filepath.Join(dir, "missing.post"), key); !perrors.HasCode(err, perrors.CodeIOFailure) {
		t.Errorf("missing package: got %v, want IO_FAILURE", err)
	}
}

func TestKeyPEMRoundTrip(t *testing.T) {
	for _, alg := range signing.SupportedAlgorithms() {
		t.Run(alg, func(t *testing.T) {
			key := generate(t, alg)

			privPEM, err := signing.MarshalPrivateKey(key)
			if err != nil {
				t.Fatal(err)
			}
			pubPEM, err := signing.MarshalPublicKey(key.Public())
			if err != nil {
				t.Fatal(err)
			}

			parsed, err := signing.ParsePrivateKey(privPEM)
			if err != nil {
				t.Fatalf("ParsePrivateKey failed: %v", err)
			}
			pub, err := signing.ParsePublicKey(pubPEM)
			if err != nil {
				t.Fatalf("ParsePublicKey failed: %v", err)
			}

			id1, _ := signing.KeyID(parsed.Public())
			id2, _ := signing.KeyID(pub)
			if id1 != id2 {
				t.Errorf("key IDs differ after round trip: %s vs %s", id1, id2)
			}
		})
	}
}

func TestParseKeyErrors(t *testing.T) {
	key := generate(t, signing.AlgorithmEd25519)
	pubPEM, _ := signing.MarshalPublicKey(key.Public())
	privPEM, _ := signing.MarshalPrivateKey(key)

	if _, err := signing.ParsePrivateKey([]byte("garbage")); !perrors.HasCode(err, perrors.CodeKeyError) {
		t.Errorf("garbage private key: got %v", err)
	}
	if _, err := signing.ParsePrivateKey(pubPEM); !perrors.HasCode(err, perrors.CodeKeyError) {
		t.Errorf("public PEM as private key: got %v", err)
	}
	if _, err := signing.ParsePublicKey(privPEM); !perrors.HasCode(err, perrors.CodeKeyError) {
		t.Errorf("private PEM as public key: got %v", err)
	}
	if _, err := signing.GenerateKey("rsa", nil); !perrors.HasCode(err, perrors.CodeKeyError) {
		t.Errorf("unknown algorithm: got %v", err)
	}
}

func TestUnmarshalSignatureRejectsMalformed(t *testing.T) {
	digest := strings.Repeat("ab", 32)
	valid := "version: 1\nalgorithm: ed25519\ndigest: sha256:" + digest + "\nkey_id: k\nsigned_at: 2024-03-01T09:30:00Z\nsignature: " + strings.Repeat("A", 88) + "\n"

	if _, err := signing.UnmarshalSignature([]byte(valid)); err != nil {
		t.Fatalf("valid artifact rejected: %v", err)
	}

	tests := map[string]string{
		"not yaml":        "{{{",
		"unknown field":   valid + "extra: 1\n",
		"short digest":    strings.Replace(valid, digest, "abcd", 1),
		"uppercase hex":   strings.Replace(valid, digest, strings.ToUpper(digest), 1),
		"missing value":   strings.Replace(valid, "signature: "+strings.Repeat("A", 88), "signature: \"\"", 1),
		"missing version": strings.Replace(valid, "version: 1\n", "", 1),
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := signing.UnmarshalSignature([]byte(doc))
			if !perrors.HasCode(err, perrors.CodeSignatureFormatError) {
				t.Errorf("got %v, want SIGNATURE_FORMAT_ERROR", err)
			}
		})
	}
}

func TestReadSignatureMissing(t *testing.T) {
	_, err := signing.ReadSignature(filepath.Join(t.TempDir(), "none.sig"))
	if !perrors.HasCode(err, perrors.CodeSignatureFormatError) {
		t.Errorf("got %v, want SIGNATURE_FORMAT_ERROR", err)
	}
}
