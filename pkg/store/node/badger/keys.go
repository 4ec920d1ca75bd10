package badger

import "encoding/binary"

// Database Key Namespace Design
// ==============================
//
// Records and sibling order live in separate prefixed namespaces so that a
// parent's children can be listed with a single prefix scan.
//
// Data Type      Prefix   Key Format                          Value
// ===================================================================================
// Node Record    "n:"     n:<nodeID>                          node record (XDR)
// Children       "c:"     c:<parentID>\x00<seq uint64 BE>     child node ID (bytes)
// Sequence       "seq:"   seq:node                            badger.Sequence state
//
// Children keys embed the big-endian creation sequence, so a prefix scan
// returns siblings in creation order. The NUL separator cannot appear in a
// node ID and keeps "/a" from matching the children of "/ab".

const (
	prefixNode     = "n:"
	prefixChildren = "c:"
	keySequence    = "seq:node"
)

func keyNode(id string) []byte {
	return []byte(prefixNode + id)
}

func keyChildrenPrefix(parent string) []byte {
	return []byte(prefixChildren + parent + "\x00")
}

func keyChild(parent string, seq uint64) []byte {
	prefix := keyChildrenPrefix(parent)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}
