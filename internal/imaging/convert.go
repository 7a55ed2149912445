package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"commissions/internal/apperr"
	"commissions/internal/fileutil"
	"commissions/internal/logging"
)

// Outcome is the per-file result of ConvertOne.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Converter holds the codecs and directories used to convert a single file.
type Converter struct {
	DerivativeDir    string
	Master           MasterEncoder
	Derivative       DerivativeEncoder
	DecodeMaster     MasterDecoder
	PreserveMetadata bool
	Logger           *slog.Logger
}

// NewConverter builds a Converter with the jpegli and WEBP codecs.
func NewConverter(derivativeDir string, jpegQuality, webpQuality int, preserveMetadata bool, logger *slog.Logger) *Converter {
	return &Converter{
		DerivativeDir:    derivativeDir,
		Master:           JPEGMaster{Quality: jpegQuality},
		Derivative:       WebPDerivative{Quality: webpQuality},
		DecodeMaster:     DecodeJPEG,
		PreserveMetadata: preserveMetadata,
		Logger:           logger,
	}
}

// DerivativePath returns where the WEBP for src lives.
func (c *Converter) DerivativePath(src Source) string {
	return filepath.Join(c.DerivativeDir, src.Name+ExtWebP)
}

// ConvertOne converts a single source file and reports what happened. Any
// I/O or codec error, including a panic inside a codec, yields OutcomeFailed.
func (c *Converter) ConvertOne(ctx context.Context, src Source) (outcome Outcome) {
	logger := c.logger(ctx).With(logging.String("file", src.FileName))
	defer func() {
		if r := recover(); r != nil {
			logConversionFailure(logger, src, fmt.Errorf("panic: %v", r))
			outcome = OutcomeFailed
		}
	}()

	var (
		result Outcome
		err    error
	)
	switch src.Ext {
	case ExtJPEG:
		result, err = c.deriveWebP(src)
	case ExtPNG:
		result, err = c.promotePNG(src)
	default:
		return OutcomeSkipped
	}
	if err != nil {
		logConversionFailure(logger, src, err)
		return OutcomeFailed
	}
	logger.Debug("file converted", logging.String("outcome", string(result)))
	return result
}

// deriveWebP regenerates the derivative of a JPEG master when it is missing
// or older than the master. A pending PNG with the same basename wins: the
// JPEG is not canonical until that PNG has been promoted.
func (c *Converter) deriveWebP(src Source) (Outcome, error) {
	if src.PendingPNG {
		return OutcomeSkipped, nil
	}
	if _, pending := src.Sibling(ExtPNG); pending {
		return OutcomeSkipped, nil
	}
	dst := c.DerivativePath(src)
	if !NeedsUpdate(src.Path(), dst) {
		return OutcomeSkipped, nil
	}

	f, err := os.Open(src.Path())
	if err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "open master", "", err)
	}
	defer f.Close()

	img, err := c.DecodeMaster(f)
	if err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "decode master", "", err)
	}
	if err := fileutil.WriteAtomic(dst, 0o644, func(w io.Writer) error {
		return c.Derivative.EncodeDerivative(w, img)
	}); err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "encode derivative", "", err)
	}
	return OutcomeProcessed, nil
}

// promotePNG encodes a PNG upload into the JPEG master and removes the PNG.
// An existing master at least as new as the PNG means the upload was already
// promoted. An existing master is overwritten in place whatever the case of
// its extension, so a basename never ends up with two masters.
func (c *Converter) promotePNG(src Source) (Outcome, error) {
	dst, _ := src.Sibling(ExtJPEG)
	if !NeedsUpdate(src.Path(), dst) {
		return OutcomeSkipped, nil
	}

	data, err := os.ReadFile(src.Path())
	if err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "read upload", "", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "decode upload", "", err)
	}

	encoded, err := c.encodeMaster(img, data)
	if err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "encode master", "", err)
	}
	if err := fileutil.WriteFileAtomic(dst, encoded, 0o644); err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "write master", "", err)
	}
	if err := os.Remove(src.Path()); err != nil {
		return OutcomeFailed, apperr.Wrap(apperr.ErrIO, "remove promoted upload", "", err)
	}
	return OutcomeProcessed, nil
}

func (c *Converter) encodeMaster(img image.Image, pngData []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Master.EncodeMaster(&buf, img); err != nil {
		return nil, err
	}
	if !c.PreserveMetadata {
		return buf.Bytes(), nil
	}
	meta, err := ReadPNGMetadata(pngData)
	if err != nil || meta.Empty() {
		return buf.Bytes(), nil
	}
	return EmbedJPEGMetadata(buf.Bytes(), meta)
}

func (c *Converter) logger(ctx context.Context) *slog.Logger {
	logger := c.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return logging.WithContext(ctx, logger)
}

func logConversionFailure(logger *slog.Logger, src Source, err error) {
	logging.WarnWithContext(logger, "image conversion failed", "image_conversion_failed",
		logging.String("source", src.Path()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "re-export or replace the source image"),
		logging.String(logging.FieldImpact, "file left unconverted until the next run"),
	)
}
