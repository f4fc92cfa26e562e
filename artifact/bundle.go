package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/tracknova/recgo/codec"
	"github.com/tracknova/recgo/distance"
)

// Bundle format:
//
//	[0:4]   magic "RAB1"
//	[4:6]   format version (uint16 LE)
//	[6:8]   codec name length (uint16 LE)
//	[8:10]  compression name length (uint16 LE)
//	[10:12] reserved
//	codec name bytes
//	compression name bytes
//	payload: compression(codec(bundlePayload))
//
// The header is self-describing so the training pipeline can pick codec
// and compression per bundle without coordination with the engine.
var bundleMagic = [4]byte{'R', 'A', 'B', '1'}

const bundleFormatVersion = uint16(1)

// Compression names recorded in bundle headers.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// bundlePayload is the serialized artifact body. Vectors and centroids
// are flattened row-major; Dim recovers the row boundaries.
type bundlePayload struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Metric    string    `json:"metric"`
	Dim       int       `json:"dim"`
	IDs       []string  `json:"ids"`
	Data      []float32 `json:"data"`
	Labels    []int32   `json:"labels,omitempty"`
	Centroids []float32 `json:"centroids,omitempty"`
	Postings  [][]int32 `json:"postings,omitempty"`
}

// Decode parses a bundle file into a validated artifact.
func Decode(data []byte) (*Artifact, error) {
	const headerLen = 12
	if len(data) < headerLen {
		return nil, fmt.Errorf("bundle: truncated header (%d bytes)", len(data))
	}
	if !bytes.Equal(data[0:4], bundleMagic[:]) {
		return nil, fmt.Errorf("bundle: bad magic %q", data[0:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != bundleFormatVersion {
		return nil, fmt.Errorf("bundle: unsupported format version %d (expected %d)", v, bundleFormatVersion)
	}

	codecLen := int(binary.LittleEndian.Uint16(data[6:8]))
	compLen := int(binary.LittleEndian.Uint16(data[8:10]))
	if len(data) < headerLen+codecLen+compLen {
		return nil, fmt.Errorf("bundle: truncated name section")
	}
	codecName := string(data[headerLen : headerLen+codecLen])
	compName := string(data[headerLen+codecLen : headerLen+codecLen+compLen])
	body := data[headerLen+codecLen+compLen:]

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("bundle: unknown codec %q", codecName)
	}

	body, err := decompress(compName, body)
	if err != nil {
		return nil, err
	}

	var p bundlePayload
	if err := c.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("bundle: decode payload: %w", err)
	}

	return fromPayload(&p)
}

// DecodeReader reads a whole bundle stream and decodes it.
func DecodeReader(r io.Reader) (*Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bundle: read: %w", err)
	}
	return Decode(data)
}

// Encode serializes an artifact into bundle bytes.
//
// The engine never writes bundles in production; Encode exists for tests
// and the bundle-building dev tooling. A nil codec selects codec.Default.
func Encode(a *Artifact, c codec.Codec, compression string) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	if compression == "" {
		compression = CompressionZstd
	}

	body, err := c.Marshal(toPayload(a))
	if err != nil {
		return nil, fmt.Errorf("bundle: encode payload: %w", err)
	}

	body, err = compress(compression, body)
	if err != nil {
		return nil, err
	}

	codecName := c.Name()
	buf := make([]byte, 12, 12+len(codecName)+len(compression)+len(body))
	copy(buf[0:4], bundleMagic[:])
	binary.LittleEndian.PutUint16(buf[4:6], bundleFormatVersion)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(codecName)))
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(compression)))
	buf = append(buf, codecName...)
	buf = append(buf, compression...)
	buf = append(buf, body...)
	return buf, nil
}

func fromPayload(p *bundlePayload) (*Artifact, error) {
	kind, err := ParseKind(p.Kind)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", p.Name, err)
	}
	metric, err := distance.ParseMetric(p.Metric)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", p.Name, err)
	}

	vectors, err := unflatten(p.Data, p.Dim, len(p.IDs))
	if err != nil {
		return nil, fmt.Errorf("bundle %s: vectors: %w", p.Name, err)
	}

	var ivf *IVF
	if len(p.Centroids) > 0 || len(p.Postings) > 0 {
		centroids, err := unflatten(p.Centroids, p.Dim, len(p.Postings))
		if err != nil {
			return nil, fmt.Errorf("bundle %s: ivf centroids: %w", p.Name, err)
		}
		ivf = &IVF{Centroids: centroids, Postings: p.Postings}
	}

	return New(p.Name, kind, metric, vectors, p.IDs, p.Labels, ivf)
}

func toPayload(a *Artifact) *bundlePayload {
	p := &bundlePayload{
		Name:   a.name,
		Kind:   a.kind.String(),
		Metric: a.metric.String(),
		Dim:    a.dim,
		IDs:    a.ids,
		Data:   flatten(a.vectors, a.dim),
		Labels: a.labels,
	}
	if a.ivf != nil {
		p.Centroids = flatten(a.ivf.Centroids, a.dim)
		p.Postings = a.ivf.Postings
	}
	return p
}

// unflatten slices a row-major flat buffer into rows without copying.
func unflatten(data []float32, dim, rows int) ([][]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("non-positive dimension %d", dim)
	}
	if len(data) != dim*rows {
		return nil, fmt.Errorf("%d values for %d rows of dimension %d", len(data), rows, dim)
	}
	out := make([][]float32, rows)
	for i := range out {
		out[i] = data[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return out, nil
}

func flatten(vecs [][]float32, dim int) []float32 {
	out := make([]float32, 0, len(vecs)*dim)
	for _, v := range vecs {
		out = append(out, v...)
	}
	return out
}

func compress(name string, data []byte) ([]byte, error) {
	switch name {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("bundle: zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("bundle: lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("bundle: lz4 flush: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("bundle: unknown compression %q", name)
	}
}

func decompress(name string, data []byte) ([]byte, error) {
	switch name {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("bundle: zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("bundle: zstd decompress: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("bundle: lz4 decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("bundle: unknown compression %q", name)
	}
}
