package assets

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/storage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFileStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return NewStore(files, zerolog.New(io.Discard)), dir
}

func TestEnsureDefaultsSeedsEmptySlots(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	originalSrc := filepath.Join(dir, "nocut.jpg")
	maskSrc := filepath.Join(dir, "cut.png")
	if err := os.WriteFile(originalSrc, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(maskSrc, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	if store.Ready(ctx) {
		t.Fatal("store should start empty")
	}
	if err := store.EnsureDefaults(ctx, originalSrc, maskSrc); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}
	if !store.Ready(ctx) {
		t.Fatal("store should be ready after seeding")
	}

	original, err := store.Original(ctx)
	if err != nil {
		t.Fatalf("original: %v", err)
	}
	if original.Filename != OriginalKey || string(original.Data) != "jpeg" {
		t.Fatalf("unexpected original part %+v", original)
	}
}

func TestEnsureDefaultsKeepsExistingUploads(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	if err := store.ReplaceMask(ctx, []byte("uploaded")); err != nil {
		t.Fatalf("replace mask: %v", err)
	}
	maskSrc := filepath.Join(dir, "cut.png")
	if err := os.WriteFile(maskSrc, []byte("default"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureDefaults(ctx, filepath.Join(dir, "absent.jpg"), maskSrc); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	mask, err := store.Mask(ctx)
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if string(mask.Data) != "uploaded" {
		t.Fatalf("mask overwritten: %q", mask.Data)
	}
	if _, err := store.Original(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing original, got %v", err)
	}
	if store.Ready(ctx) {
		t.Fatal("store should not be ready without an original")
	}
}

func TestReadsReflectReplacements(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, body := range []string{"first", "second"} {
		if err := store.ReplaceOriginal(ctx, []byte(body)); err != nil {
			t.Fatalf("replace original: %v", err)
		}
		got, err := store.Original(ctx)
		if err != nil {
			t.Fatalf("original: %v", err)
		}
		if string(got.Data) != body {
			t.Fatalf("got %q, want %q", got.Data, body)
		}
	}
	if err := store.ReplaceOriginal(ctx, nil); err == nil {
		t.Fatal("expected empty upload to fail")
	}
}

func TestMIMEByKey(t *testing.T) {
	store, _ := newTestStore(t)
	if store.OriginalMIME() != domain.MIMEJPEG || store.MaskMIME() != domain.MIMEPNG {
		t.Fatalf("unexpected mime types %s %s", store.OriginalMIME(), store.MaskMIME())
	}
}
