package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// newSolidImage returns an in-memory image filled with c.
func newSolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// encodeTestPNG returns the PNG encoding of a solid image.
func encodeTestPNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, newSolidImage(width, height, c)); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// writeTestImage writes a solid PNG into a temp dir and returns its path.
func writeTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eye.png")
	if err := os.WriteFile(path, encodeTestPNG(t, width, height, c), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func TestImageCache_Load(t *testing.T) {
	path := writeTestImage(t, 100, 80, color.RGBA{255, 0, 0, 255})

	cache := NewImageCache()
	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", bounds.Dx(), bounds.Dy())
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}

	// Second load comes from the cache even after the file is gone.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("cached Load failed: %v", err)
	}
	if img2 != img {
		t.Error("expected cached image to be returned")
	}
}

func TestImageCache_LoadErrors(t *testing.T) {
	cache := NewImageCache()

	if _, err := cache.Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(bad); err == nil {
		t.Error("expected error for invalid image")
	}
	if cache.Len() != 0 {
		t.Errorf("failed loads must not be cached, got %d entries", cache.Len())
	}
}

func TestImageCache_EvictAndClear(t *testing.T) {
	a := writeTestImage(t, 10, 10, color.White)
	b := writeTestImage(t, 20, 20, color.Black)

	cache := NewImageCache()
	for _, p := range []string{a, b} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load(%s) failed: %v", p, err)
		}
	}

	cache.Evict(a)
	if cache.Len() != 1 {
		t.Errorf("after Evict: got %d entries, want 1", cache.Len())
	}
	cache.Evict("never-loaded")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("after Clear: got %d entries, want 0", cache.Len())
	}
}

func TestImageCache_Concurrent(t *testing.T) {
	path := writeTestImage(t, 50, 50, color.RGBA{0, 0, 255, 255})
	cache := NewImageCache()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load failed: %v", err)
	}
}

func TestDecodeBytes_Formats(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, newSolidImage(32, 16, color.Gray{128}), nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		raw  []byte
		w, h int
	}{
		{"png", encodeTestPNG(t, 40, 30, color.White), 40, 30},
		{"jpeg", jpg.Bytes(), 32, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeBytes(tt.raw)
			if err != nil {
				t.Fatalf("DecodeBytes failed: %v", err)
			}
			d := GetDimensions(img)
			if d.Width != tt.w || d.Height != tt.h {
				t.Errorf("dimensions: got %dx%d, want %dx%d", d.Width, d.Height, tt.w, tt.h)
			}
		})
	}
}

func TestSniffMimeType(t *testing.T) {
	mime, err := SniffMimeType(encodeTestPNG(t, 2, 2, color.White))
	if err != nil {
		t.Fatalf("SniffMimeType failed: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime: got %s, want image/png", mime)
	}

	if _, err := SniffMimeType([]byte("hello, world")); err == nil {
		t.Error("expected error for text content")
	}
}

func TestReadImageFile(t *testing.T) {
	path := writeTestImage(t, 8, 8, color.White)

	raw, mime, err := ReadImageFile(path)
	if err != nil {
		t.Fatalf("ReadImageFile failed: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime: got %s, want image/png", mime)
	}
	if len(raw) == 0 {
		t.Error("expected file bytes")
	}

	text := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(text, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadImageFile(text); err == nil {
		t.Error("expected error for non-image file")
	}
}

func TestInspectBytes(t *testing.T) {
	raw := encodeTestPNG(t, 64, 48, color.White)

	info, err := InspectBytes(raw)
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}
	if info.Width != 64 || info.Height != 48 {
		t.Errorf("dimensions: got %dx%d, want 64x48", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
	if info.SizeBytes != len(raw) {
		t.Errorf("size: got %d, want %d", info.SizeBytes, len(raw))
	}

	if _, err := InspectBytes([]byte("junk")); err == nil {
		t.Error("expected error for junk bytes")
	}
}
