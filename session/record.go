package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const (
	recordFormatVersionCurrent = 1

	recordHeaderSize = 1 + 8 + 8 + 4
)

// record is the envelope stored by byte-oriented backends: the encoded user
// data plus the timestamps needed to enforce expiry independently of backend
// TTLs.
type record struct {
	Payload   []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (r record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// encodeRecord writes the v1 layout:
//
//	version(1) | created unix ms(8) | expires unix ms(8, 0 = never) | payload len(4) | payload
func encodeRecord(r record) ([]byte, error) {
	if len(r.Payload) > math.MaxUint32 {
		return nil, errors.New("session payload too large")
	}

	var buf bytes.Buffer
	buf.Grow(recordHeaderSize + len(r.Payload))

	buf.WriteByte(recordFormatVersionCurrent)

	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}

	var expires int64
	if !r.ExpiresAt.IsZero() {
		expires = r.ExpiresAt.UnixMilli()
	}
	if err := binary.Write(&buf, binary.BigEndian, expires); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(r.Payload))); err != nil {
		return nil, err
	}
	buf.Write(r.Payload)

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if version != recordFormatVersionCurrent {
		return record{}, fmt.Errorf("%w: %w %d", ErrCorruptRecord, ErrUnsupportedRecordVersion, version)
	}

	var created, expires int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	var size uint32
	if err := binary.Read(reader, binary.BigEndian, &size); err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if int64(size) != int64(reader.Len()) {
		return record{}, fmt.Errorf("%w: payload length %d, have %d", ErrCorruptRecord, size, reader.Len())
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(reader, payload); err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	r := record{
		Payload:   payload,
		CreatedAt: time.UnixMilli(created),
	}
	if expires != 0 {
		r.ExpiresAt = time.UnixMilli(expires)
	}
	return r, nil
}
