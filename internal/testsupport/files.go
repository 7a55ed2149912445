package testsupport

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestImage returns a small gradient so encoders have something non-trivial
// to work with.
func TestImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 0x80, A: 0xff})
		}
	}
	return img
}

// WritePNG encodes a w×h test image as PNG at path.
func WritePNG(t testing.TB, path string, w, h int) {
	t.Helper()
	f := create(t, path)
	defer f.Close()
	if err := png.Encode(f, TestImage(w, h)); err != nil {
		t.Fatalf("encode png %s: %v", path, err)
	}
}

// WriteJPEG encodes a w×h test image as JPEG at path.
func WriteJPEG(t testing.TB, path string, w, h int) {
	t.Helper()
	f := create(t, path)
	defer f.Close()
	if err := jpeg.Encode(f, TestImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg %s: %v", path, err)
	}
}

// WriteCorrupt writes bytes that no image decoder accepts.
func WriteCorrupt(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("this is not an image"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Touch sets both access and modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// ModTime returns the modification time of path.
func ModTime(t testing.TB, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.ModTime()
}

func create(t testing.TB, path string) *os.File {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	return f
}
