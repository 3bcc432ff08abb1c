package bundler

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/types"
)

// maxMetadataSize bounds how much of meta.toml ReadMetadata will load.
const maxMetadataSize = 1 << 20

func encodeMetadata(meta types.PostMetadata) ([]byte, error) {
	b, err := toml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", MetadataFile, err)
	}
	return b, nil
}

func decodeMetadata(data []byte) (types.PostMetadata, error) {
	var meta types.PostMetadata
	if err := toml.Unmarshal(data, &meta); err != nil {
		return types.PostMetadata{}, fmt.Errorf("decode %s: %w", MetadataFile, err)
	}
	meta.Published = meta.Published.UTC()
	return meta, nil
}

// ReadMetadata decodes the metadata record of the package at pkgPath.
func ReadMetadata(pkgPath string) (types.PostMetadata, error) {
	r, err := Open(pkgPath)
	if err != nil {
		return types.PostMetadata{}, err
	}
	defer r.Close()

	entries := r.Entries()
	if len(entries) == 0 || entries[0].Name != MetadataFile {
		return types.PostMetadata{}, perrors.WithMetadata(perrors.CodeNotAPackage,
			"package has no metadata record", perrors.Path(pkgPath))
	}

	rc, err := entries[0].Open()
	if err != nil {
		return types.PostMetadata{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxMetadataSize))
	if err != nil {
		return types.PostMetadata{}, perrors.WrapWithMetadata(perrors.CodeCorruptEntry,
			"read entry", perrors.Entry(pkgPath, MetadataFile), err)
	}

	meta, err := decodeMetadata(data)
	if err != nil {
		return types.PostMetadata{}, perrors.WrapWithMetadata(perrors.CodeCorruptEntry,
			"invalid metadata record", perrors.Entry(pkgPath, MetadataFile), err)
	}
	return meta, nil
}
