package session

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestRecordRoundTrip(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_123)
	in := record{
		Payload:   []byte(`{"name":"alice"}`),
		CreatedAt: created,
		ExpiresAt: created.Add(time.Hour),
	}

	data, err := encodeRecord(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !bytes.Equal(out.Payload, in.Payload) || !out.CreatedAt.Equal(in.CreatedAt) || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestRecordWithoutExpiry(t *testing.T) {
	data, err := encodeRecord(record{Payload: []byte("x"), CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.ExpiresAt.IsZero() || out.expired(time.Now().Add(100*365*24*time.Hour)) {
		t.Fatalf("record without expiry must never expire: %+v", out)
	}
}

func TestDecodeRecordRejectsUnsupportedVersion(t *testing.T) {
	_, err := decodeRecord([]byte{99})
	if !errors.Is(err, ErrUnsupportedRecordVersion) || !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected unsupported version error, got %v", err)
	}
}

func TestDecodeRecordRejectsTruncatedPayload(t *testing.T) {
	data, err := encodeRecord(record{Payload: []byte("payload"), CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, n := range []int{0, 1, 9, recordHeaderSize, len(data) - 1} {
		if _, err := decodeRecord(data[:n]); !errors.Is(err, ErrCorruptRecord) {
			t.Fatalf("truncated at %d: expected ErrCorruptRecord, got %v", n, err)
		}
	}
	if _, err := decodeRecord(append(data, 0)); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("trailing bytes: expected ErrCorruptRecord, got %v", err)
	}
}

// FuzzRecordDecode checks the decoder never panics and that anything it
// accepts re-encodes to the same bytes.
func FuzzRecordDecode(f *testing.F) {
	seed, err := encodeRecord(record{
		Payload:   []byte(`{"name":"fuzz"}`),
		CreatedAt: time.UnixMilli(1_700_000_000_000),
		ExpiresAt: time.UnixMilli(1_700_003_600_000),
	})
	if err == nil {
		f.Add(seed)
		f.Add(seed[:10])
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := decodeRecord(data)
		if err != nil {
			return
		}
		again, err := encodeRecord(r)
		if err != nil {
			t.Fatalf("re-encode failed: %v", err)
		}
		if !bytes.Equal(again, data) {
			t.Fatalf("re-encoded bytes differ")
		}
	})
}
