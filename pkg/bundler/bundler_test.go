package bundler_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fragment-platform/blogify/pkg/bundler"
	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/types"
)

var fixedTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// writeSource creates a source file under dir and returns its path.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func sampleInput(t *testing.T, srcDir string) types.BuildInput {
	t.Helper()
	return types.BuildInput{
		Metadata: types.PostMetadata{
			Name:      "Hello",
			Slug:      "hello-world",
			Published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Document: types.FileRef{Path: writeSource(t, srcDir, "index.html", "<p>hi</p>")},
		Assets: []types.FileRef{
			{Path: writeSource(t, srcDir, "style.css", "body{}")},
			{Path: writeSource(t, srcDir, "b.png", "PNG"), Name: "img/b.png"},
		},
	}
}

func TestBuild(t *testing.T) {
	outDir := t.TempDir()
	input := sampleInput(t, t.TempDir())

	result, err := bundler.Build(input,
		bundler.WithTimestamp(fixedTime),
		bundler.WithOutputDir(outDir),
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if result.ArchivePath != filepath.Join(outDir, "hello-world.post") {
		t.Errorf("ArchivePath = %s", result.ArchivePath)
	}
	if result.FileCount != 4 {
		t.Errorf("FileCount = %d, want 4", result.FileCount)
	}
	if !result.Manifest.GeneratedAt.Equal(fixedTime) {
		t.Error("Manifest timestamp mismatch")
	}
	info, err := os.Stat(result.ArchivePath)
	if err != nil {
		t.Fatalf("Archive not found: %v", err)
	}
	if info.Size() != result.SizeBytes {
		t.Errorf("SizeBytes = %d, file is %d bytes", result.SizeBytes, info.Size())
	}
}

func TestBuildEntryLayout(t *testing.T) {
	outDir := t.TempDir()
	result, err := bundler.Build(sampleInput(t, t.TempDir()), bundler.WithOutputDir(outDir))
	if err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(result.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	want := []string{"meta.toml", "index.html", "assets/style.css", "assets/img/b.png"}
	if len(zr.File) != len(want) {
		t.Fatalf("got %d entries, want %d", len(zr.File), len(want))
	}
	for i, f := range zr.File {
		if f.Name != want[i] {
			t.Errorf("entry %d = %q, want %q", i, f.Name, want[i])
		}
		if f.Method != zip.Store {
			t.Errorf("entry %q uses method %d, want Store", f.Name, f.Method)
		}
	}

	for i, f := range result.Manifest.Files {
		if f.Path != want[i] {
			t.Errorf("manifest entry %d = %q, want %q", i, f.Path, want[i])
		}
		if f.Hashed != (f.Path != bundler.MetadataFile) {
			t.Errorf("manifest entry %q Hashed = %v", f.Path, f.Hashed)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	input := sampleInput(t, t.TempDir())

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		result, err := bundler.Build(input,
			bundler.WithOutputDir(t.TempDir()),
			bundler.WithTimestamp(fixedTime.Add(time.Duration(i)*time.Hour)),
		)
		if err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(result.ArchivePath)
		if err != nil {
			t.Fatal(err)
		}
		outputs = append(outputs, data)
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("identical input produced different package bytes")
	}
}

func TestBuildOutputConflict(t *testing.T) {
	outDir := t.TempDir()
	input := sampleInput(t, t.TempDir())

	if _, err := bundler.Build(input, bundler.WithOutputDir(outDir)); err != nil {
		t.Fatal(err)
	}
	_, err := bundler.Build(input, bundler.WithOutputDir(outDir))
	if !perrors.HasCode(err, perrors.CodeOutputConflict) {
		t.Fatalf("got %v, want OUTPUT_CONFLICT", err)
	}

	if _, err := bundler.Build(input, bundler.WithOutputDir(outDir), bundler.WithOverwrite(true)); err != nil {
		t.Fatalf("overwrite build failed: %v", err)
	}
}

func TestBuildFailureLeavesNothingBehind(t *testing.T) {
	outDir := t.TempDir()
	srcDir := t.TempDir()
	input := sampleInput(t, srcDir)
	input.Assets = append(input.Assets, types.FileRef{Path: filepath.Join(srcDir, "missing.png")})

	_, err := bundler.Build(input, bundler.WithOutputDir(outDir))
	if !perrors.HasCode(err, perrors.CodeSourceFileMissing) {
		t.Fatalf("got %v, want SOURCE_FILE_MISSING", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output directory not empty after failed build: %v", entries)
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	srcDir := t.TempDir()
	doc := writeSource(t, srcDir, "index.html", "<p>hi</p>")
	css := writeSource(t, srcDir, "style.css", "body{}")
	other := writeSource(t, srcDir, "other/style.css", "p{}")

	tests := []struct {
		name  string
		input types.BuildInput
		code  perrors.Code
	}{
		{
			name:  "empty slug",
			input: types.BuildInput{Metadata: types.PostMetadata{Name: "x"}, Document: types.FileRef{Path: doc}},
			code:  perrors.CodeInvalidInput,
		},
		{
			name:  "escaping slug",
			input: types.BuildInput{Metadata: types.PostMetadata{Slug: "../up"}, Document: types.FileRef{Path: doc}},
			code:  perrors.CodeInvalidInput,
		},
		{
			name:  "document outside root",
			input: types.BuildInput{Metadata: types.PostMetadata{Slug: "p"}, Document: types.FileRef{Path: doc, Name: "sub/index.html"}},
			code:  perrors.CodeInvalidInput,
		},
		{
			name: "duplicate asset",
			input: types.BuildInput{
				Metadata: types.PostMetadata{Slug: "p"},
				Document: types.FileRef{Path: doc},
				Assets:   []types.FileRef{{Path: css}, {Path: other}},
			},
			code: perrors.CodeInvalidInput,
		},
		{
			name:  "document shadows metadata",
			input: types.BuildInput{Metadata: types.PostMetadata{Slug: "p"}, Document: types.FileRef{Path: doc, Name: "meta.toml"}},
			code:  perrors.CodeInvalidInput,
		},
		{
			name: "escaping asset name",
			input: types.BuildInput{
				Metadata: types.PostMetadata{Slug: "p"},
				Document: types.FileRef{Path: doc},
				Assets:   []types.FileRef{{Path: css, Name: "../../etc/passwd"}},
			},
			code: perrors.CodeInvalidInput,
		},
		{
			name:  "missing document",
			input: types.BuildInput{Metadata: types.PostMetadata{Slug: "p"}, Document: types.FileRef{Path: filepath.Join(srcDir, "nope.html")}},
			code:  perrors.CodeSourceFileMissing,
		},
		{
			name:  "document is a directory",
			input: types.BuildInput{Metadata: types.PostMetadata{Slug: "p"}, Document: types.FileRef{Path: srcDir}},
			code:  perrors.CodeSourceFileMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bundler.Build(tt.input, bundler.WithOutputDir(t.TempDir()))
			if !perrors.HasCode(err, tt.code) {
				t.Errorf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestReadMetadata(t *testing.T) {
	input := sampleInput(t, t.TempDir())
	input.Metadata.Published = time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	result, err := bundler.Build(input, bundler.WithOutputDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	meta, err := bundler.ReadMetadata(result.ArchivePath)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if meta.Name != "Hello" || meta.Slug != "hello-world" {
		t.Errorf("metadata = %+v", meta)
	}
	if !meta.Published.Equal(input.Metadata.Published) || meta.Published.Location() != time.UTC {
		t.Errorf("Published = %v, want %v in UTC", meta.Published, input.Metadata.Published)
	}
}

func TestPublishedDefaultsToTimestamp(t *testing.T) {
	input := sampleInput(t, t.TempDir())
	input.Metadata.Published = time.Time{}

	ts := fixedTime.Add(1500 * time.Millisecond)
	result, err := bundler.Build(input, bundler.WithOutputDir(t.TempDir()), bundler.WithTimestamp(ts))
	if err != nil {
		t.Fatal(err)
	}
	meta, err := bundler.ReadMetadata(result.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	if !meta.Published.Equal(ts.Truncate(time.Second)) {
		t.Errorf("Published = %v, want %v", meta.Published, ts.Truncate(time.Second))
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Héllo, Wörld!":        "hello-world",
		"  Go 1.22 released  ": "go-1-22-released",
		"already-a-slug":       "already-a-slug",
		"Ünïcödé & Friends":    "unicode-friends",
		"!!!":                  "",
	}
	for in, want := range tests {
		if got := bundler.Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateSlug(t *testing.T) {
	valid := []string{"hello-world", "a", "post_1.2~draft", "2024"}
	invalid := []string{"", "-leading", ".hidden", "a..b", "has space", "a/b", "a\\b", strings.Repeat("x", 201)}

	for _, s := range valid {
		if err := bundler.ValidateSlug(s); err != nil {
			t.Errorf("ValidateSlug(%q) = %v, want nil", s, err)
		}
	}
	for _, s := range invalid {
		if err := bundler.ValidateSlug(s); !perrors.HasCode(err, perrors.CodeInvalidInput) {
			t.Errorf("ValidateSlug(%q) = %v, want INVALID_INPUT", s, err)
		}
	}
}
