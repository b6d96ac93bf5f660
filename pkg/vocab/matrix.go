package vocab

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// The embedding matrix is persisted as a small binary file: a uint32
// revision length and the revision bytes of the snapshot it belongs to,
// then two uint32 header words (rows, dims) followed by rows*dims
// little-endian float32 values in row-major order.

func writeMatrix(path, revision string, matrix [][]float32) error {
	rows := len(matrix)
	dims := 0
	if rows > 0 {
		dims = len(matrix[0])
	}

	buf := make([]byte, 4+len(revision)+8+rows*dims*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(revision)))
	copy(buf[4:], revision)

	off := 4 + len(revision)
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(rows))
	binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(dims))
	off += 8

	for _, row := range matrix {
		if len(row) != dims {
			return fmt.Errorf("%w: row width %d, expected %d", ErrMisaligned, len(row), dims)
		}
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("writing temp matrix: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming matrix: %w", err)
	}
	return nil
}

func readMatrix(path string) (string, [][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	if len(data) < 4 {
		return "", nil, fmt.Errorf("%w: matrix file too small", ErrCorrupt)
	}
	revLen := int(binary.LittleEndian.Uint32(data[0:4]))
	data = data[4:]
	if len(data) < revLen+8 {
		return "", nil, fmt.Errorf("%w: matrix file too small", ErrCorrupt)
	}
	revision := string(data[:revLen])
	data = data[revLen:]

	rows := int(binary.LittleEndian.Uint32(data[0:4]))
	dims := int(binary.LittleEndian.Uint32(data[4:8]))
	data = data[8:]

	if len(data) != rows*dims*4 {
		return "", nil, fmt.Errorf("%w: matrix payload is %d bytes, expected %d", ErrCorrupt, len(data), rows*dims*4)
	}

	matrix := make([][]float32, rows)
	off := 0
	for i := range matrix {
		row := make([]float32, dims)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		matrix[i] = row
	}
	return revision, matrix, nil
}
