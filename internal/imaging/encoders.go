package imaging

import (
	"image"
	"io"

	"github.com/gen2brain/jpegli"
	"github.com/gen2brain/webp"
)

// MasterEncoder writes the durable JPEG master.
type MasterEncoder interface {
	EncodeMaster(w io.Writer, img image.Image) error
}

// DerivativeEncoder writes the WEBP delivery derivative.
type DerivativeEncoder interface {
	EncodeDerivative(w io.Writer, img image.Image) error
}

// MasterDecoder reads a JPEG master back for derivative generation.
type MasterDecoder func(r io.Reader) (image.Image, error)

// JPEGMaster encodes masters with jpegli: progressive, 4:4:4 chroma and
// optimized Huffman tables.
type JPEGMaster struct {
	Quality int
}

func (e JPEGMaster) EncodeMaster(w io.Writer, img image.Image) error {
	return jpegli.Encode(w, img, &jpegli.EncodingOptions{
		Quality:           e.Quality,
		ProgressiveLevel:  2,
		ChromaSubsampling: image.YCbCrSubsampleRatio444,
		OptimizeCoding:    true,
	})
}

// WebPDerivative encodes lossy WEBP derivatives.
type WebPDerivative struct {
	Quality int
}

func (e WebPDerivative) EncodeDerivative(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, webp.Options{
		Quality: e.Quality,
		Method:  4,
	})
}

// DecodeJPEG decodes a JPEG master using jpegli.
func DecodeJPEG(r io.Reader) (image.Image, error) {
	return jpegli.Decode(r)
}
