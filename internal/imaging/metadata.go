package imaging

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Metadata is the ancillary data carried from a PNG upload into its JPEG
// master.
type Metadata struct {
	ICCProfile []byte
	Exif       []byte
}

// Empty reports whether there is nothing to carry over.
func (m Metadata) Empty() bool {
	return len(m.ICCProfile) == 0 && len(m.Exif) == 0
}

// ReadPNGMetadata walks the chunk list of a PNG file and returns its colour
// profile (iCCP, decompressed) and Exif payload (eXIf). Chunks it does not
// understand are skipped. A malformed iCCP chunk is ignored rather than
// failing the conversion; a truncated chunk list is an error.
func ReadPNGMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if !bytes.HasPrefix(data, pngSignature) {
		return meta, errors.New("not a png file")
	}
	rest := data[len(pngSignature):]
	for len(rest) >= 12 {
		length := binary.BigEndian.Uint32(rest[:4])
		kind := string(rest[4:8])
		if uint64(length)+12 > uint64(len(rest)) {
			return meta, fmt.Errorf("png chunk %q truncated", kind)
		}
		body := rest[8 : 8+length]
		switch kind {
		case "iCCP":
			if profile, err := inflateICCP(body); err == nil {
				meta.ICCProfile = profile
			}
		case "eXIf":
			meta.Exif = append([]byte(nil), body...)
		case "IEND":
			return meta, nil
		}
		rest = rest[12+length:]
	}
	return meta, nil
}

// iCCP: profile name, NUL, compression method (0 = zlib), compressed profile.
func inflateICCP(body []byte) ([]byte, error) {
	nul := bytes.IndexByte(body, 0)
	if nul < 1 || nul+2 > len(body) {
		return nil, errors.New("malformed iCCP chunk")
	}
	if body[nul+1] != 0 {
		return nil, fmt.Errorf("unsupported iCCP compression %d", body[nul+1])
	}
	zr, err := zlib.NewReader(bytes.NewReader(body[nul+2:]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

const (
	maxSegmentPayload = 0xFFFF - 2
	iccHeaderLen      = 14 // "ICC_PROFILE\0" + sequence + count
	maxICCChunk       = maxSegmentPayload - iccHeaderLen
)

var (
	exifHeader = []byte("Exif\x00\x00")
	iccHeader  = []byte("ICC_PROFILE\x00")
)

// EmbedJPEGMetadata returns jpg with APP1 (Exif) and APP2 (ICC profile)
// segments inserted after SOI and any leading JFIF APP0 segment. Exif larger
// than one segment is dropped; ICC profiles are split across up to 255 APP2
// segments as ICC.1 Annex B allows.
func EmbedJPEGMetadata(jpg []byte, meta Metadata) ([]byte, error) {
	if len(jpg) < 4 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		return nil, errors.New("not a jpeg stream")
	}
	if meta.Empty() {
		return jpg, nil
	}

	insertAt := 2
	if jpg[2] == 0xFF && jpg[3] == 0xE0 && len(jpg) >= 6 {
		segLen := int(binary.BigEndian.Uint16(jpg[4:6]))
		if 4+segLen <= len(jpg) {
			insertAt = 4 + segLen
		}
	}

	var segments bytes.Buffer
	if n := len(meta.Exif); n > 0 && n+len(exifHeader) <= maxSegmentPayload {
		writeSegment(&segments, 0xE1, exifHeader, meta.Exif)
	}
	if n := len(meta.ICCProfile); n > 0 {
		count := (n + maxICCChunk - 1) / maxICCChunk
		if count <= 255 {
			for i := 0; i < count; i++ {
				start := i * maxICCChunk
				end := min(start+maxICCChunk, n)
				header := append(append([]byte(nil), iccHeader...), byte(i+1), byte(count))
				writeSegment(&segments, 0xE2, header, meta.ICCProfile[start:end])
			}
		}
	}

	out := make([]byte, 0, len(jpg)+segments.Len())
	out = append(out, jpg[:insertAt]...)
	out = append(out, segments.Bytes()...)
	out = append(out, jpg[insertAt:]...)
	return out, nil
}

func writeSegment(buf *bytes.Buffer, marker byte, header, payload []byte) {
	var lenBytes [2]byte
	binary.BigEndian.PutUint16(lenBytes[:], uint16(2+len(header)+len(payload)))
	buf.Write([]byte{0xFF, marker})
	buf.Write(lenBytes[:])
	buf.Write(header)
	buf.Write(payload)
}
