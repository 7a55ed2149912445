package imaging_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/webp"

	"commissions/internal/config"
	"commissions/internal/imaging"
	"commissions/internal/logging"
	"commissions/internal/testsupport"
)

// stdJPEG stands in for jpegli so the bulk tests stay fast.
type stdJPEG struct{}

func (stdJPEG) EncodeMaster(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
}

type stubWebP struct{}

func (stubWebP) EncodeDerivative(w io.Writer, img image.Image) error {
	_, err := fmt.Fprintf(w, "RIFF%dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	return err
}

type panickingWebP struct{}

func (panickingWebP) EncodeDerivative(io.Writer, image.Image) error {
	panic("encoder bug")
}

type failingWebP struct{}

func (failingWebP) EncodeDerivative(io.Writer, image.Image) error {
	return errors.New("encoder unavailable")
}

// countingWebP records how many encodes overlap.
type countingWebP struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingWebP) EncodeDerivative(w io.Writer, img image.Image) error {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return stubWebP{}.EncodeDerivative(w, img)
}

func newTestPipeline(cfg *config.Config) *imaging.Pipeline {
	p := imaging.New(cfg, logging.NewNop())
	p.Converter.Master = stdJPEG{}
	p.Converter.Derivative = stubWebP{}
	p.Converter.DecodeMaster = jpeg.Decode
	return p
}

func run(t *testing.T, p *imaging.Pipeline) imaging.BatchReport {
	t.Helper()
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func TestScanFiltersAndMarksPendingPNG(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.PNG", "a.jpg", "notes.txt", "c.JPG", "d.jpeg", "e.webp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "webp.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	sources, err := imaging.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := make([]string, 0, len(sources))
	for _, src := range sources {
		got = append(got, src.FileName)
	}
	want := []string{"a.PNG", "a.jpg", "b.jpg", "c.JPG"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}
	for _, src := range sources {
		switch src.FileName {
		case "a.jpg":
			if !src.PendingPNG {
				t.Fatalf("expected a.jpg to see pending png")
			}
		case "a.PNG":
			if src.Ext != imaging.ExtPNG || src.Name != "a" || src.MasterName != "a.jpg" {
				t.Fatalf("unexpected source %+v", src)
			}
		case "b.jpg", "c.JPG":
			if src.PendingPNG {
				t.Fatalf("%s should not have a pending png", src.FileName)
			}
		}
	}
}

func TestScanMissingDirectory(t *testing.T) {
	_, err := imaging.Scan(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestNeedsUpdate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	dst := filepath.Join(dir, "photo.webp")
	testsupport.WriteCorrupt(t, src)

	if !imaging.NeedsUpdate(src, dst) {
		t.Fatal("missing destination must need update")
	}
	testsupport.WriteCorrupt(t, dst)

	base := time.Now().Add(-time.Hour)
	testsupport.Touch(t, src, base)
	testsupport.Touch(t, dst, base)
	if imaging.NeedsUpdate(src, dst) {
		t.Fatal("equal mtimes must count as fresh")
	}
	testsupport.Touch(t, dst, base.Add(-time.Minute))
	if !imaging.NeedsUpdate(src, dst) {
		t.Fatal("older destination must need update")
	}
	if !imaging.NeedsUpdate(filepath.Join(dir, "gone.jpg"), dst) {
		t.Fatal("missing source must need update")
	}
}

func TestPNGPromotionThenDerivative(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	pngPath := testsupport.ImagePath(cfg, "photo.png")
	jpgPath := testsupport.ImagePath(cfg, "photo.jpg")
	webpPath := testsupport.WebPPath(cfg, "photo.webp")
	testsupport.WritePNG(t, pngPath, 16, 12)

	first := run(t, p)
	if first.Processed != 1 || first.Skipped != 0 || len(first.Failed) != 0 {
		t.Fatalf("unexpected first report: %+v", first)
	}
	testsupport.MustExist(t, jpgPath)
	testsupport.MustNotExist(t, pngPath)
	testsupport.MustNotExist(t, webpPath)

	second := run(t, p)
	if second.Processed != 1 {
		t.Fatalf("expected derivative on second run, got %+v", second)
	}
	testsupport.MustExist(t, webpPath)

	third := run(t, p)
	if third.Processed != 0 || third.Skipped != 1 {
		t.Fatalf("expected idle third run, got %+v", third)
	}
}

func TestIdempotentSecondRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	old := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		path := testsupport.ImagePath(cfg, fmt.Sprintf("art-%d.jpg", i))
		testsupport.WriteJPEG(t, path, 8, 8)
		testsupport.Touch(t, path, old)
	}

	first := run(t, p)
	if first.Processed != 4 {
		t.Fatalf("expected 4 processed, got %+v", first)
	}
	before := testsupport.ModTime(t, testsupport.WebPPath(cfg, "art-0.webp"))

	second := run(t, p)
	if second.Processed != 0 || second.Skipped != 4 {
		t.Fatalf("expected nothing processed on second run, got %+v", second)
	}
	if after := testsupport.ModTime(t, testsupport.WebPPath(cfg, "art-0.webp")); !after.Equal(before) {
		t.Fatalf("derivative rewritten on idle run: %v -> %v", before, after)
	}
}

func TestFreshnessByModificationTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	jpgPath := testsupport.ImagePath(cfg, "photo.jpg")
	webpPath := testsupport.WebPPath(cfg, "photo.webp")
	testsupport.WriteJPEG(t, jpgPath, 8, 8)

	base := time.Now().Add(-2 * time.Hour)
	testsupport.Touch(t, jpgPath, base)
	run(t, p)

	testsupport.Touch(t, webpPath, base.Add(time.Minute))
	if report := run(t, p); report.Skipped != 1 || report.Processed != 0 {
		t.Fatalf("newer derivative should be skipped, got %+v", report)
	}

	testsupport.Touch(t, jpgPath, base.Add(time.Hour))
	testsupport.Touch(t, webpPath, base)
	if report := run(t, p); report.Processed != 1 {
		t.Fatalf("stale derivative should be regenerated, got %+v", report)
	}
	if !testsupport.ModTime(t, webpPath).After(base.Add(time.Hour)) {
		t.Fatal("derivative mtime did not move forward")
	}
}

func TestPendingPNGTakesPrecedence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	jpgPath := testsupport.ImagePath(cfg, "photo.jpg")
	pngPath := testsupport.ImagePath(cfg, "photo.png")
	testsupport.WriteJPEG(t, jpgPath, 8, 8)
	testsupport.WritePNG(t, pngPath, 8, 8)
	testsupport.Touch(t, jpgPath, time.Now().Add(-time.Hour))

	report := run(t, p)
	if report.Processed != 1 || report.Skipped != 1 {
		t.Fatalf("expected png promoted and jpg skipped, got %+v", report)
	}
	testsupport.MustNotExist(t, pngPath)
	testsupport.MustNotExist(t, testsupport.WebPPath(cfg, "photo.webp"))
}

func TestPromotionReusesUpperCaseMaster(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	jpgPath := testsupport.ImagePath(cfg, "photo.JPG")
	pngPath := testsupport.ImagePath(cfg, "photo.PNG")
	testsupport.WriteJPEG(t, jpgPath, 8, 8)
	testsupport.WritePNG(t, pngPath, 8, 8)
	testsupport.Touch(t, jpgPath, time.Now().Add(-time.Hour))

	report := run(t, p)
	if report.Processed != 1 || report.Skipped != 1 {
		t.Fatalf("expected png promoted and jpg skipped, got %+v", report)
	}
	testsupport.MustNotExist(t, pngPath)

	entries, err := os.ReadDir(cfg.Paths.ImagesDir)
	if err != nil {
		t.Fatal(err)
	}
	var masters []string
	for _, entry := range entries {
		if !entry.IsDir() {
			masters = append(masters, entry.Name())
		}
	}
	if fmt.Sprint(masters) != "[photo.JPG]" {
		t.Fatalf("expected a single master photo.JPG, got %v", masters)
	}

	if report := run(t, p); report.Processed != 1 {
		t.Fatalf("expected derivative from promoted master, got %+v", report)
	}
	testsupport.MustExist(t, testsupport.WebPPath(cfg, "photo.webp"))
}

func TestPromotedPNGSkippedWhenMasterIsNewer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	jpgPath := testsupport.ImagePath(cfg, "photo.jpg")
	pngPath := testsupport.ImagePath(cfg, "photo.png")
	testsupport.WritePNG(t, pngPath, 8, 8)
	testsupport.WriteJPEG(t, jpgPath, 8, 8)
	testsupport.Touch(t, pngPath, time.Now().Add(-time.Hour))

	report := run(t, p)
	if report.Processed != 0 || report.Skipped != 2 {
		t.Fatalf("expected both skipped, got %+v", report)
	}
	testsupport.MustExist(t, pngPath)
}

func TestBatchResilience(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(8))
	p := newTestPipeline(cfg)

	corrupt := map[string]bool{}
	for i := 0; i < 100; i++ {
		switch {
		case i%20 == 7:
			name := fmt.Sprintf("img-%03d.png", i)
			if i%40 == 7 {
				name = fmt.Sprintf("img-%03d.jpg", i)
			}
			testsupport.WriteCorrupt(t, testsupport.ImagePath(cfg, name))
			corrupt[name] = true
		case i%2 == 0:
			testsupport.WritePNG(t, testsupport.ImagePath(cfg, fmt.Sprintf("img-%03d.png", i)), 4, 4)
		default:
			testsupport.WriteJPEG(t, testsupport.ImagePath(cfg, fmt.Sprintf("img-%03d.jpg", i)), 4, 4)
		}
	}
	if len(corrupt) != 5 {
		t.Fatalf("fixture should contain 5 corrupt files, got %d", len(corrupt))
	}

	report := run(t, p)
	if report.Total() != 100 {
		t.Fatalf("expected 100 outcomes, got %+v", report)
	}
	if len(report.Failed) != 5 {
		t.Fatalf("expected 5 failures, got %v", report.Failed)
	}
	for _, name := range report.Failed {
		if !corrupt[name] {
			t.Fatalf("unexpected failure %q", name)
		}
	}
}

func TestPipelineBoundsConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(3))
	p := newTestPipeline(cfg)
	encoder := &countingWebP{}
	p.Converter.Derivative = encoder
	for i := 0; i < 20; i++ {
		testsupport.WriteJPEG(t, testsupport.ImagePath(cfg, fmt.Sprintf("art-%02d.jpg", i)), 4, 4)
	}

	report := run(t, p)
	if report.Processed != 20 {
		t.Fatalf("expected 20 processed, got %+v", report)
	}
	if peak := encoder.peak.Load(); peak > 3 || peak < 1 {
		t.Fatalf("expected at most 3 concurrent encodes, saw %d", peak)
	}
}

func TestCodecPanicIsContained(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	p.Converter.Derivative = panickingWebP{}
	testsupport.WriteJPEG(t, testsupport.ImagePath(cfg, "a.jpg"), 4, 4)
	testsupport.WriteJPEG(t, testsupport.ImagePath(cfg, "b.jpg"), 4, 4)

	report := run(t, p)
	if len(report.Failed) != 2 {
		t.Fatalf("expected both files failed, got %+v", report)
	}
}

func TestEncoderErrorLeavesNoPartialDerivative(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(cfg)
	p.Converter.Derivative = failingWebP{}
	testsupport.WriteJPEG(t, testsupport.ImagePath(cfg, "a.jpg"), 4, 4)

	report := run(t, p)
	if len(report.Failed) != 1 || report.Failed[0] != "a.jpg" {
		t.Fatalf("unexpected report %+v", report)
	}
	entries, err := os.ReadDir(cfg.WebPDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("derivative dir should be empty, found %d entries", len(entries))
	}
}

func TestRunFailsWhenSourceDirMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.ImagesDir = filepath.Join(testsupport.BaseDir(cfg), "missing")
	cfg.Paths.WebPSubdir = filepath.Join("..", "webp-out")
	p := newTestPipeline(cfg)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected directory-level error")
	}
}

func TestRunCreatesDerivativeDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustNotExist(t, cfg.WebPDir())
	report := run(t, newTestPipeline(cfg))
	if report.Total() != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	testsupport.MustExist(t, cfg.WebPDir())
}

func TestRunRecordsRunID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := logging.WithRunID(context.Background(), "run-123")
	report, err := newTestPipeline(cfg).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.RunID != "run-123" {
		t.Fatalf("expected run id to be recorded, got %q", report.RunID)
	}
}

func TestProductionCodecs(t *testing.T) {
	if testing.Short() {
		t.Skip("wasm codecs are slow")
	}
	cfg := testsupport.NewConfig(t)
	p := imaging.New(cfg, logging.NewNop())
	testsupport.WritePNG(t, testsupport.ImagePath(cfg, "photo.png"), 32, 24)

	if report := run(t, p); report.Processed != 1 {
		t.Fatalf("promotion failed: %+v", report)
	}
	f, err := os.Open(testsupport.ImagePath(cfg, "photo.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("master is not a valid jpeg: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Fatalf("unexpected master bounds %v", img.Bounds())
	}

	if report := run(t, p); report.Processed != 1 {
		t.Fatalf("derivative failed: %+v", report)
	}
	derivative, err := os.Open(testsupport.WebPPath(cfg, "photo.webp"))
	if err != nil {
		t.Fatal(err)
	}
	defer derivative.Close()
	decoded, err := webp.Decode(derivative)
	if err != nil {
		t.Fatalf("derivative is not a valid webp: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("derivative bounds %v differ from master %v", decoded.Bounds(), img.Bounds())
	}
}
