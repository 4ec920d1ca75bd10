package transfer

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/marmos91/stonify/pkg/wiretap"
)

// DropMode is the timecode counting mode written to clip metadata.
type DropMode string

const (
	DropFrame    DropMode = "DF"
	NonDropFrame DropMode = "NDF"
)

// DefaultTimecode is the source timecode used when none is given.
const DefaultTimecode = "00:00:00:00"

// hh:mm:ss:ff, with semicolons for drop frame timecode.
var timecodePattern = regexp.MustCompile(`^\d{2}[:;]\d{2}[:;]\d{2}[:;]\d{2}$`)

// ParseDropMode accepts "DF" or "NDF", case-insensitively.
func ParseDropMode(s string) (DropMode, error) {
	switch {
	case s == "" || strings.EqualFold(s, string(NonDropFrame)):
		return NonDropFrame, nil
	case strings.EqualFold(s, string(DropFrame)):
		return DropFrame, nil
	}
	return "", fmt.Errorf("invalid drop mode %q (want DF or NDF)", s)
}

// ValidateTimecode checks the hh:mm:ss:ff form.
func ValidateTimecode(tc string) error {
	if !timecodePattern.MatchString(tc) {
		return fmt.Errorf("invalid timecode %q (want hh:mm:ss:ff)", tc)
	}
	return nil
}

// littleEndian maps big-endian RGB layouts to their little-endian
// counterparts. Other layouts are copied unchanged.
var littleEndian = map[string]string{
	wiretap.FormatRGB:       wiretap.FormatRGBLE,
	wiretap.FormatRGBFloat:  wiretap.FormatRGBFloatLE,
	wiretap.FormatRGBA:      wiretap.FormatRGBALE,
	wiretap.FormatRGBAFloat: wiretap.FormatRGBAFloatLE,
}

// MetadataOptions are the clip fields written to destination metadata.
type MetadataOptions struct {
	FrameRate     float64 // overrides the source rate when > 0
	DropMode      DropMode
	StartTimecode string
}

type clipMetadata struct {
	XMLName  xml.Name `xml:"XML"`
	Version  string   `xml:"Version,attr"`
	ClipData struct {
		DropMode    DropMode `xml:"DropMode"`
		SrcTimecode string   `xml:"SrcTimecode"`
	} `xml:"ClipData"`
}

// ClipMetadata renders the XML metadata of a destination clip.
func ClipMetadata(mode DropMode, startTimecode string) (string, error) {
	var md clipMetadata
	md.Version = "1.0"
	md.ClipData.DropMode = mode
	md.ClipData.SrcTimecode = startTimecode

	out, err := xml.Marshal(md)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DeriveClipFormat builds the destination format from the source format.
//
// Frame geometry, depth, pixel ratio and scan format are copied. RGB layout
// tags switch to little-endian. The frame buffer size is cleared so the
// destination server computes its own, and the metadata is replaced with
// the drop mode and start timecode.
func DeriveClipFormat(src wiretap.ClipFormat, opts MetadataOptions) (wiretap.ClipFormat, error) {
	dst := wiretap.ClipFormat{
		Width:        src.Width,
		Height:       src.Height,
		BitsPerPixel: src.BitsPerPixel,
		NumChannels:  src.NumChannels,
		FrameRate:    src.FrameRate,
		PixelRatio:   src.PixelRatio,
		ScanFormat:   src.ScanFormat,
		FormatTag:    src.FormatTag,
	}
	if le, ok := littleEndian[src.FormatTag]; ok {
		dst.FormatTag = le
	}
	if opts.FrameRate > 0 {
		dst.FrameRate = opts.FrameRate
	}

	mode := opts.DropMode
	if mode == "" {
		mode = NonDropFrame
	}
	tc := opts.StartTimecode
	if tc == "" {
		tc = DefaultTimecode
	}

	md, err := ClipMetadata(mode, tc)
	if err != nil {
		return dst, wiretap.NewError(wiretap.ErrFormat, "unable to encode clip metadata", "", err)
	}
	dst.MetadataTag = wiretap.MetadataTagXML
	dst.Metadata = md

	if err := dst.Validate(); err != nil {
		return dst, wiretap.NewError(wiretap.ErrFormat, "invalid source clip format", "", err)
	}
	return dst, nil
}
