package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	store := NewMem()
	ctx := context.Background()

	if err := store.Save(ctx, "reports/abc-transportadora.pdf", strings.NewReader("%PDF fake")); err != nil {
		t.Fatalf("save: %v", err)
	}

	f, err := store.Open(ctx, "reports/abc-transportadora.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF fake" {
		t.Fatalf("read back %q", data)
	}

	ok, err := store.Exists(ctx, "reports/abc-transportadora.pdf")
	if err != nil || !ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := NewMem()
	ctx := context.Background()

	if err := store.Save(ctx, "reports/a.pdf", strings.NewReader("first")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "reports/a.pdf", strings.NewReader("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	f, err := store.Open(ctx, "reports/a.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	data, _ := io.ReadAll(f)
	if string(data) != "second" {
		t.Fatalf("read back %q, want latest write", data)
	}
}

func TestOpenMissingKey(t *testing.T) {
	store := NewMem()

	if _, err := store.Open(context.Background(), "reports/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewMem()
	ctx := context.Background()

	if err := store.Save(ctx, "tickets/one/foto.png", strings.NewReader("img")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "tickets/one/foto.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "tickets/one/foto.png"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	ok, err := store.Exists(ctx, "tickets/one/foto.png")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("blob still present after delete")
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := NewMem()
	ctx := context.Background()

	for _, key := range []string{"", "   ", ".", "..", "../etc/passwd", "/abs/path", "reports/../../x"} {
		if err := store.Save(ctx, key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("Save(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}

	// Dot segments that stay inside the root are fine once cleaned.
	if err := store.Save(ctx, "reports/./a.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("save cleaned key: %v", err)
	}
	if ok, _ := store.Exists(ctx, "reports/a.pdf"); !ok {
		t.Fatal("cleaned key not stored under its normal form")
	}
}
