package imageindex

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/gen2brain/webp"
)

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.webp", "a.webp", "notes.txt", "index.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.webp"), 0o755); err != nil {
		t.Fatal(err)
	}

	written, err := Write(dir, "index.json", "run-1")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(written.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", written.Entries)
	}

	read, err := Read(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if read.RunID != "run-1" {
		t.Fatalf("run id not persisted: %q", read.RunID)
	}
	if read.Entries[0].Name != "a" || read.Entries[1].File != "b.webp" {
		t.Fatalf("unexpected order: %+v", read.Entries)
	}
	entry, ok := read.Lookup("b")
	if !ok || entry.Size != 4 {
		t.Fatalf("lookup failed: %+v %v", entry, ok)
	}
	if _, ok := read.Lookup("missing"); ok {
		t.Fatal("lookup of missing name should fail")
	}
}

func TestBuildMissingDir(t *testing.T) {
	if _, err := Build(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestBuildRecordsDimensions(t *testing.T) {
	if testing.Short() {
		t.Skip("encodes a real WEBP")
	}
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 16))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})

	f, err := os.Create(filepath.Join(dir, "piece.webp"))
	if err != nil {
		t.Fatal(err)
	}
	if err := webp.Encode(f, img, webp.Options{Quality: 80}); err != nil {
		f.Close()
		t.Fatalf("encode: %v", err)
	}
	f.Close()
	if err := os.WriteFile(filepath.Join(dir, "broken.webp"), []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	piece, ok := idx.Lookup("piece")
	if !ok || piece.Width != 24 || piece.Height != 16 {
		t.Fatalf("expected 24x16 entry, got %+v", piece)
	}
	broken, ok := idx.Lookup("broken")
	if !ok || broken.Width != 0 {
		t.Fatalf("unparseable derivative should be listed without dimensions, got %+v", broken)
	}
}
