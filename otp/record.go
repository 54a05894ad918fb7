package otp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	recordVersionV1 = 1
	recordSize      = 1 + 2 + 8 + 32
)

// Record is a pending challenge. The code itself is never stored; only its
// SHA-256 digest.
type Record struct {
	CodeHash  [32]byte
	ExpiresAt time.Time
	Attempts  uint16
}

// Binary layout: version(1) attempts(2 big-endian) expiresAt-unix-ms(8 big-endian) codeHash(32).
func encodeRecord(record *Record) []byte {
	var buf bytes.Buffer
	buf.Grow(recordSize)

	buf.WriteByte(recordVersionV1)
	_ = binary.Write(&buf, binary.BigEndian, record.Attempts)
	_ = binary.Write(&buf, binary.BigEndian, record.ExpiresAt.UnixMilli())
	buf.Write(record.CodeHash[:])

	return buf.Bytes()
}

func decodeRecord(data []byte) (*Record, error) {
	if len(data) != recordSize {
		return nil, errors.New("invalid otp record size")
	}
	if data[0] != recordVersionV1 {
		return nil, errors.New("invalid otp record version")
	}

	record := &Record{
		Attempts:  binary.BigEndian.Uint16(data[1:3]),
		ExpiresAt: time.UnixMilli(int64(binary.BigEndian.Uint64(data[3:11]))),
	}
	copy(record.CodeHash[:], data[11:])
	return record, nil
}
