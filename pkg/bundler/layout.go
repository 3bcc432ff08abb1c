package bundler

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/types"
)

const (
	LayoutVersion = "v1"
	MetadataFile  = "meta.toml"
	AssetsDir     = "assets"
	PackageExt    = ".post"
)

// PackagePath returns where the package for slug lives inside outputDir.
func PackagePath(outputDir, slug string) string {
	return filepath.Join(outputDir, slug+PackageExt)
}

// CanonicalEntryName normalizes a package entry name and rejects names that
// would resolve outside the package namespace: empty names, absolute paths,
// backslash separators and any ".." segment. Directory entries keep their
// trailing slash.
func CanonicalEntryName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("entry name is empty")
	}
	if strings.ContainsRune(name, '\\') {
		return "", fmt.Errorf("entry name %q contains a backslash", name)
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("entry name %q is absolute", name)
	}
	isDir := strings.HasSuffix(name, "/")
	for _, seg := range strings.Split(strings.TrimSuffix(name, "/"), "/") {
		if seg == ".." {
			return "", fmt.Errorf("entry name %q escapes the package", name)
		}
	}

	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", fmt.Errorf("entry name %q is empty after cleaning", name)
	}
	if isDir {
		cleaned += "/"
	}
	return cleaned, nil
}

// documentEntryName places the primary document at the package root.
func documentEntryName(ref types.FileRef) (string, error) {
	name := ref.Name
	if name == "" {
		name = filepath.Base(ref.Path)
	}
	name = filepath.ToSlash(name)
	if strings.Contains(name, "/") {
		return "", perrors.WithMetadata(perrors.CodeInvalidInput,
			"document must be stored at the package root", perrors.Entry(ref.Path, name))
	}
	return canonicalInputName(ref.Path, name)
}

// assetEntryName places an asset under assets/, keeping its relative name.
// Absolute or escaping source paths fall back to the file's base name.
func assetEntryName(ref types.FileRef) (string, error) {
	name := ref.Name
	if name == "" {
		if filepath.IsLocal(ref.Path) {
			name = filepath.Clean(ref.Path)
		} else {
			name = filepath.Base(ref.Path)
		}
	}
	return canonicalInputName(ref.Path, AssetsDir+"/"+filepath.ToSlash(name))
}

func canonicalInputName(source, name string) (string, error) {
	canonical, err := CanonicalEntryName(name)
	if err != nil {
		return "", perrors.WrapWithMetadata(perrors.CodeInvalidInput,
			"invalid entry name", perrors.Entry(source, name), err)
	}
	if strings.HasSuffix(canonical, "/") {
		return "", perrors.WithMetadata(perrors.CodeInvalidInput,
			"entry name denotes a directory", perrors.Entry(source, name))
	}
	return canonical, nil
}
