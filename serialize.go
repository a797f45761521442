package vfs

import (
	"encoding/binary"

	"github.com/valeos/vfs/data"
)

// On-wire header sizes: the directory entry carries three 8-byte words
// (offset_next, type, length), the mount point record four (offset_next,
// length_mp, length_dev, length_type). All words are little-endian.
// Readers advance by offset_next bytes from the start of the current
// record; a zero offset_next terminates the sequence.
const (
	directoryEntryHeaderSize = 3 * 8
	mountPointHeaderSize     = 4 * 8
)

// entriesSize computes the buffer space a directory listing requires: per
// file the fixed header, the name bytes and a NUL terminator.
func entriesSize(files []data.FileMetadata) uint64 {
	var total uint64
	for _, f := range files {
		total += directoryEntryHeaderSize + 1 + uint64(len(f.Name))
	}
	return total
}

// serializeEntries packs the listing into buf, which callers have sized
// with entriesSize. Each record carries the byte distance to the next one;
// the last record carries zero.
func serializeEntries(files []data.FileMetadata, buf []byte) {
	position := 0

	for i, f := range files {
		var offsetNext uint64
		if i+1 < len(files) {
			offsetNext = uint64(len(f.Name)) + 1 + directoryEntryHeaderSize
		}

		binary.LittleEndian.PutUint64(buf[position:], offsetNext)
		binary.LittleEndian.PutUint64(buf[position+8:], 0)
		binary.LittleEndian.PutUint64(buf[position+16:], uint64(len(f.Name)))

		copy(buf[position+directoryEntryHeaderSize:], f.Name)
		buf[position+directoryEntryHeaderSize+len(f.Name)] = 0

		position += int(offsetNext)
	}
}

// mountsSize computes the buffer space the mount listing requires: per
// mount the fixed header, three NUL terminators and the three strings.
func mountsSize(mounts []*mountEntry) uint64 {
	var total uint64
	for _, m := range mounts {
		total += mountPointHeaderSize + 3 +
			uint64(len(m.mountPoint)+len(m.device)+len(m.fsType.String()))
	}
	return total
}

// serializeMounts packs the registry into buf in registration order. Each
// record carries mount_point, device and filesystem type as consecutive
// NUL-terminated strings.
func serializeMounts(mounts []*mountEntry, buf []byte) {
	position := 0

	for i, m := range mounts {
		fsType := m.fsType.String()

		var offsetNext uint64
		if i+1 < len(mounts) {
			offsetNext = mountPointHeaderSize + 3 +
				uint64(len(m.mountPoint)+len(m.device)+len(fsType))
		}

		binary.LittleEndian.PutUint64(buf[position:], offsetNext)
		binary.LittleEndian.PutUint64(buf[position+8:], uint64(len(m.mountPoint)))
		binary.LittleEndian.PutUint64(buf[position+16:], uint64(len(m.device)))
		binary.LittleEndian.PutUint64(buf[position+24:], uint64(len(fsType)))

		pos := position + mountPointHeaderSize
		for _, s := range []string{m.mountPoint, m.device, fsType} {
			copy(buf[pos:], s)
			buf[pos+len(s)] = 0
			pos += len(s) + 1
		}

		position += int(offsetNext)
	}
}
