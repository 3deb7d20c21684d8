package store

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// KeyFor derives a stable book id from the identity of an uploaded file.
// The same file name, size and modification time always map to the same id.
func KeyFor(name string, size int64, modTime time.Time) string {
	h := blake3.New()
	h.Write([]byte(name))

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(size))
	binary.BigEndian.PutUint64(buf[8:], uint64(modTime.UnixMilli()))
	h.Write(buf[:])

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
