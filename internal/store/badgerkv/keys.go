package badgerkv

import (
	"encoding/binary"
	"hash/fnv"
)

// Key prefixes. Single-byte prefixes keep related records adjacent under
// BadgerDB's lexicographic iteration, so a prefix scan is a range scan.
const (
	prefixNode     = byte(0x01) // node:      0x01 + id                         -> gob(nodeRecord)
	prefixEdge     = byte(0x02) // edge:      0x02 + edgeID                      -> gob(edgeRecord)
	prefixIndex    = byte(0x03) // index:     0x03 + indexName + 0x00 + value    -> id
	prefixOutAdj   = byte(0x04) // out-adj:   0x04 + fromID + labelHash(4B)      -> pair(edgeID, toID)
	prefixInAdj    = byte(0x05) // in-adj:    0x05 + toID + labelHash(4B)        -> pair(edgeID, fromID)
	prefixManifest = byte(0x06) // manifest:  0x06 + id                         -> gob(entity.ManifestRecord)
)

const sep = byte(0x00)

func nodeKey(id string) []byte {
	return append([]byte{prefixNode}, []byte(id)...)
}

func edgeKey(id string) []byte {
	return append([]byte{prefixEdge}, []byte(id)...)
}

func manifestKey(id string) []byte {
	return append([]byte{prefixManifest}, []byte(id)...)
}

func manifestPrefix() []byte {
	return []byte{prefixManifest}
}

func nodePrefix() []byte {
	return []byte{prefixNode}
}

func edgePrefix() []byte {
	return []byte{prefixEdge}
}

// indexKey builds a secondary-index key for one of the "kind", "status", or
// "path" families.
func indexKey(indexName, value, id string) []byte {
	key := make([]byte, 0, 1+len(indexName)+1+len(value)+1+len(id))
	key = append(key, prefixIndex)
	key = append(key, []byte(indexName)...)
	key = append(key, sep)
	key = append(key, []byte(value)...)
	key = append(key, sep)
	key = append(key, []byte(id)...)
	return key
}

func indexPrefix(indexName, value string) []byte {
	key := make([]byte, 0, 1+len(indexName)+1+len(value)+1)
	key = append(key, prefixIndex)
	key = append(key, []byte(indexName)...)
	key = append(key, sep)
	key = append(key, []byte(value)...)
	key = append(key, sep)
	return key
}

// labelHash is the FNV-32a hash of a relationship label, used to keep
// adjacency keys a fixed width regardless of label length. Collisions are
// disambiguated by the caller re-checking the retrieved edge record's
// literal label.
func labelHash(label string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return h.Sum32()
}

func outAdjKey(fromID string, label string) []byte {
	return adjKey(prefixOutAdj, fromID, label)
}

func outAdjPrefix(fromID string) []byte {
	return append([]byte{prefixOutAdj}, []byte(fromID)...)
}

func inAdjKey(toID string, label string) []byte {
	return adjKey(prefixInAdj, toID, label)
}

func inAdjPrefix(toID string) []byte {
	return append([]byte{prefixInAdj}, []byte(toID)...)
}

func adjKey(prefix byte, id string, label string) []byte {
	key := make([]byte, 0, 1+len(id)+4)
	key = append(key, prefix)
	key = append(key, []byte(id)...)
	var hashBytes [4]byte
	binary.BigEndian.PutUint32(hashBytes[:], labelHash(label))
	key = append(key, hashBytes[:]...)
	return key
}

// encodePair packs (edgeID, otherID) into a length-prefixed value for an
// adjacency index entry.
func encodePair(a, b string) []byte {
	buf := make([]byte, 0, 8+len(a)+len(b))
	var lenA, lenB [4]byte
	binary.BigEndian.PutUint32(lenA[:], uint32(len(a)))
	binary.BigEndian.PutUint32(lenB[:], uint32(len(b)))
	buf = append(buf, lenA[:]...)
	buf = append(buf, a...)
	buf = append(buf, lenB[:]...)
	buf = append(buf, b...)
	return buf
}

func decodePair(buf []byte) (a, b string, ok bool) {
	if len(buf) < 4 {
		return "", "", false
	}
	lenA := binary.BigEndian.Uint32(buf[0:4])
	if uint32(len(buf)) < 4+lenA+4 {
		return "", "", false
	}
	a = string(buf[4 : 4+lenA])
	offset := 4 + lenA
	lenB := binary.BigEndian.Uint32(buf[offset : offset+4])
	offset += 4
	if uint32(len(buf)) < offset+lenB {
		return "", "", false
	}
	b = string(buf[offset : offset+lenB])
	return a, b, true
}
