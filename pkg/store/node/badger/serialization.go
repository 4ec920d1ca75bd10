package badger

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/stonify/pkg/store/node"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// Records are stored as XDR so that the on-disk layout is fixed-width and
// independent of Go struct tags. Optional fields are flattened with a
// presence flag since the wire struct cannot hold pointers.

type recordWire struct {
	Version   uint32
	ID        string
	Parent    string
	Name      string
	Type      string
	NumFrames int64
	Seq       uint64
	HasFormat bool
	Format    formatWire
}

type formatWire struct {
	Width           int32
	Height          int32
	BitsPerPixel    int32
	NumChannels     int32
	FrameRate       float64
	PixelRatio      float64
	ScanFormat      string
	FormatTag       string
	FrameBufferSize int64
	MetadataTag     string
	Metadata        string
}

const recordVersion = 1

func encodeRecord(rec *node.Record) ([]byte, error) {
	w := recordWire{
		Version:   recordVersion,
		ID:        rec.ID,
		Parent:    rec.Parent,
		Name:      rec.Name,
		Type:      string(rec.Type),
		NumFrames: int64(rec.NumFrames),
		Seq:       rec.Seq,
	}
	if f := rec.Format; f != nil {
		w.HasFormat = true
		w.Format = formatWire{
			Width:           int32(f.Width),
			Height:          int32(f.Height),
			BitsPerPixel:    int32(f.BitsPerPixel),
			NumChannels:     int32(f.NumChannels),
			FrameRate:       f.FrameRate,
			PixelRatio:      f.PixelRatio,
			ScanFormat:      string(f.ScanFormat),
			FormatTag:       f.FormatTag,
			FrameBufferSize: int64(f.FrameBufferSize),
			MetadataTag:     f.MetadataTag,
			Metadata:        f.Metadata,
		}
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &w); err != nil {
		return nil, fmt.Errorf("failed to encode node %s: %w", rec.ID, err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*node.Record, error) {
	var w recordWire
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &w); err != nil {
		return nil, fmt.Errorf("failed to decode node record: %w", err)
	}
	if w.Version != recordVersion {
		return nil, fmt.Errorf("unsupported node record version %d", w.Version)
	}

	rec := &node.Record{
		ID:        w.ID,
		Parent:    w.Parent,
		Name:      w.Name,
		Type:      wiretap.NodeType(w.Type),
		NumFrames: int(w.NumFrames),
		Seq:       w.Seq,
	}
	if w.HasFormat {
		f := w.Format
		rec.Format = &wiretap.ClipFormat{
			Width:           int(f.Width),
			Height:          int(f.Height),
			BitsPerPixel:    int(f.BitsPerPixel),
			NumChannels:     int(f.NumChannels),
			FrameRate:       f.FrameRate,
			PixelRatio:      f.PixelRatio,
			ScanFormat:      wiretap.ScanFormat(f.ScanFormat),
			FormatTag:       f.FormatTag,
			FrameBufferSize: int(f.FrameBufferSize),
			MetadataTag:     f.MetadataTag,
			Metadata:        f.Metadata,
		}
	}
	return rec, nil
}
