package fileconv

import (
	"encoding/binary"

	"github.com/jackzampolin/lectern/internal/errs"
)

// tiffFrameCount walks the IFD chain of a TIFF file and returns the number
// of directories, which is the number of pages.
func tiffFrameCount(data []byte) (int, error) {
	if len(data) < 8 {
		return 0, &errs.FileFormatError{Detected: MIMETIFF}
	}
	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, &errs.FileFormatError{Detected: MIMETIFF}
	}
	if order.Uint16(data[2:4]) != 42 {
		return 0, &errs.FileFormatError{Detected: MIMETIFF}
	}

	offset := int64(order.Uint32(data[4:8]))
	count := 0
	seen := make(map[int64]bool)
	for offset != 0 {
		if seen[offset] || offset < 8 || offset+2 > int64(len(data)) {
			return 0, &errs.FileFormatError{Detected: MIMETIFF}
		}
		seen[offset] = true
		entries := int64(order.Uint16(data[offset : offset+2]))
		next := offset + 2 + entries*12
		if next+4 > int64(len(data)) {
			return 0, &errs.FileFormatError{Detected: MIMETIFF}
		}
		count++
		offset = int64(order.Uint32(data[next : next+4]))
	}
	if count == 0 {
		return 0, &errs.FileFormatError{Detected: MIMETIFF}
	}
	return count, nil
}
