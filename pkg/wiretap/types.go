// Package wiretap defines the contract of a Wiretap media-asset service: the
// node hierarchy (hosts, volumes, projects, libraries, reels, clips), clip
// formats, product types and the error taxonomy shared by every component that
// browses or writes to a Wiretap server.
//
// The wire protocol is out of scope. Implementations of Client and Server may
// talk to a real deployment or, like package local, serve nodes from
// in-process stores.
package wiretap

import (
	"fmt"
	"sort"
	"strings"
)

// Product is the service category a Wiretap server implements.
type Product string

const (
	// ProductIFFFS is a stone filesystem server (the usual destination).
	ProductIFFFS Product = "IFFFS"

	// ProductGateway exposes media files on disk as clips (the usual source).
	ProductGateway Product = "Wiretap Gateway Server"

	// ProductBackburner is a render queue.
	ProductBackburner Product = "Backburner"
)

// gatewayAlias replaces the gateway product name in hostnames.
const gatewayAlias = "Gateway"

// Products lists every known product in a stable order.
var Products = []Product{ProductIFFFS, ProductGateway, ProductBackburner}

// Label returns the short product name used as the hostname suffix.
func (p Product) Label() string {
	if strings.Contains(strings.ToLower(string(p)), "gateway") {
		return gatewayAlias
	}
	return string(p)
}

// ParseProduct resolves a product name or hostname label, ignoring case.
func ParseProduct(s string) (Product, error) {
	for _, p := range Products {
		if strings.EqualFold(s, string(p)) || strings.EqualFold(s, p.Label()) {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid Wiretap server product: %q", s)
}

// ProductSet is a product filter. The empty set matches every product.
type ProductSet map[Product]struct{}

// NewProductSet builds a filter from the given products.
func NewProductSet(products ...Product) ProductSet {
	set := make(ProductSet, len(products))
	for _, p := range products {
		set[p] = struct{}{}
	}
	return set
}

// ParseProductSet builds a filter from product names or labels.
func ParseProductSet(names []string) (ProductSet, error) {
	set := make(ProductSet, len(names))
	for _, name := range names {
		p, err := ParseProduct(name)
		if err != nil {
			return nil, err
		}
		set[p] = struct{}{}
	}
	return set, nil
}

// Contains reports whether servers of product p pass the filter. Product
// names reported by servers are compared case-insensitively.
func (s ProductSet) Contains(p Product) bool {
	if len(s) == 0 {
		return true
	}
	for want := range s {
		if strings.EqualFold(string(want), string(p)) {
			return true
		}
	}
	return false
}

// String lists the products in the set, sorted.
func (s ProductSet) String() string {
	if len(s) == 0 {
		return "all"
	}
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, p.Label())
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// NodeType is the type tag of a node. Servers may report extended types
// beyond the constants below; those are carried through unchanged.
type NodeType string

const (
	NodeHost    NodeType = "HOST"
	NodeVolume  NodeType = "VOLUME"
	NodeProject NodeType = "PROJECT"
	NodeLibrary NodeType = "LIBRARY"
	NodeReel    NodeType = "REEL"
	NodeClip    NodeType = "CLIP"
	NodeSetup   NodeType = "SETUP"
)

// IsContainer reports whether nodes of this type can hold children.
func (t NodeType) IsContainer() bool {
	switch t {
	case NodeHost, NodeVolume, NodeProject, NodeLibrary, NodeReel:
		return true
	}
	return false
}

// IsClipContainer reports whether nodes of this type may hold clips.
func (t NodeType) IsClipContainer() bool {
	return t == NodeLibrary || t == NodeReel
}

// ServerInfo describes a server advertised by the directory service.
type ServerInfo struct {
	DisplayName string
	Product     Product
}

// Hostname returns "displayName:productLabel", the form used to connect.
func (i ServerInfo) Hostname() string {
	return i.DisplayName + ":" + i.Product.Label()
}

// SplitHostname splits "name:Product" into its server name and product
// label. A hostname without a colon yields an empty product.
func SplitHostname(hostname string) (name, product string) {
	name, product, _ = strings.Cut(hostname, ":")
	return name, product
}

// RootID is the node ID of every server's root (HOST) node.
const RootID = "/"

// NodeInfo identifies a node on one server.
type NodeInfo struct {
	// ID is the server's unique, slash-prefixed address of the node.
	ID string

	// DisplayName is the human-readable name. Not unique among siblings.
	DisplayName string

	Type NodeType
}

// ScanFormat is the field order of a clip.
type ScanFormat string

const (
	ScanProgressive ScanFormat = "progressive"
	ScanField1      ScanFormat = "field_1"
	ScanField2      ScanFormat = "field_2"
)

// Pixel layout tags.
const (
	FormatRGB          = "rgb"
	FormatRGBFloat     = "rgb_float"
	FormatRGBA         = "rgba"
	FormatRGBAFloat    = "rgba_float"
	FormatRGBLE        = "rgb_le"
	FormatRGBFloatLE   = "rgb_float_le"
	FormatRGBALE       = "rgba_le"
	FormatRGBAFloatLE  = "rgba_float_le"
	MetadataTagXML     = "XML"
	DefaultPixelRatio  = 1.0
	DefaultBitsPerByte = 8
)

// ClipFormat describes the frames of a clip.
type ClipFormat struct {
	Width        int
	Height       int
	BitsPerPixel int
	NumChannels  int
	FrameRate    float64
	PixelRatio   float64
	ScanFormat   ScanFormat
	FormatTag    string

	// FrameBufferSize is the byte size of one frame. Servers compute it when
	// a clip is created; zero in a requested format means "derive it".
	FrameBufferSize int

	MetadataTag string
	Metadata    string
}

// ComputeFrameBufferSize returns the byte size of one uncompressed frame.
func (f ClipFormat) ComputeFrameBufferSize() int {
	if f.Width <= 0 || f.Height <= 0 || f.BitsPerPixel <= 0 {
		return 0
	}
	bits := f.Width * f.Height * f.BitsPerPixel
	return (bits + DefaultBitsPerByte - 1) / DefaultBitsPerByte
}

// Validate checks the fields a server needs to lay out frames.
func (f ClipFormat) Validate() error {
	switch {
	case f.Width <= 0 || f.Height <= 0:
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	case f.BitsPerPixel <= 0:
		return fmt.Errorf("invalid bits per pixel %d", f.BitsPerPixel)
	case f.NumChannels <= 0:
		return fmt.Errorf("invalid channel count %d", f.NumChannels)
	case f.FrameRate <= 0:
		return fmt.Errorf("invalid frame rate %g", f.FrameRate)
	}
	return nil
}
