package udf

import (
	"encoding/binary"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// u16le, u32le, u64le decode little-endian integers out of buf starting
// at off, with explicit bounds checks (distilled spec §4.1). The source
// material (go-bdinfo) relies on encoding/binary.Read against a struct;
// these free functions cover the variable-offset decoding struct tags
// can't express (FID tails, allocation-descriptor lists, partition
// maps).
func u16le(buf []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(buf) {
		return 0, badFormat("truncated u16 field")
	}
	return binary.LittleEndian.Uint16(buf[off : off+2]), nil
}

func u32le(buf []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(buf) {
		return 0, badFormat("truncated u32 field")
	}
	return binary.LittleEndian.Uint32(buf[off : off+4]), nil
}

func u64le(buf []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(buf) {
		return 0, badFormat("truncated u64 field")
	}
	return binary.LittleEndian.Uint64(buf[off : off+8]), nil
}

// utf16BEDecoder converts OSTA compressed-Unicode-16 code units (which
// are big-endian per ECMA-167 §1.3) to UTF-8. Grounded on altmount's use
// of golang.org/x/text/encoding/unicode to convert UTF-16 passwords
// (internal/importer/archive/sevenzip/processor.go); that call builds a
// LittleEndian encoder for 7-Zip's password hashing, here we build the
// BigEndian decoder OSTA's CS16 byte order requires.
var utf16BEDecoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()

// readString decodes an OSTA compressed-Unicode string (distilled spec
// §4.1). raw[0] is the compression identifier; the code units span
// raw[1:sz].
func readString(raw []byte, sz int) (string, error) {
	if sz <= 0 || sz > len(raw) {
		return "", badFormat("empty or out-of-range compressed unicode field")
	}

	switch raw[0] {
	case 8:
		units := raw[1:sz]
		// Zero-extend each byte to a rune; this is CS0/8-bit Latin-1-ish,
		// never multi-byte, so no decoder round-trip is needed.
		runes := make([]rune, len(units))
		for i, b := range units {
			runes[i] = rune(b)
		}
		// The string ends at the first NUL.
		s := string(runes)
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s, nil
	case 16:
		units := raw[1:sz]
		if len(units)%2 != 0 {
			units = units[:len(units)-1]
		}
		out, err := utf16BEDecoder.Bytes(units)
		if err != nil {
			return "", badFormatf("invalid compressed unicode-16 sequence: %v", err)
		}
		return strings.TrimRight(string(out), "\x00"), nil
	default:
		return "", badFormatf("unsupported compression id %d", raw[0])
	}
}

// readDstring decodes a fixed-field dstring (distilled spec §4.1): the
// last byte of the sz-byte field holds the encoded length, clamped to
// sz-1 if the on-disk value overruns the field. This tolerant clamping
// is an explicit, deliberate deviation from a strict ECMA-167 reading —
// see DESIGN.md's "dstring length byte" open question.
func readDstring(raw []byte, sz int) (string, error) {
	if sz <= 0 || sz > len(raw) {
		return "", badFormat("dstring field out of range")
	}
	if raw[0] == 0 {
		return "", nil
	}
	l := int(raw[sz-1])
	if l > sz-1 {
		l = sz - 1
	}
	if l <= 0 {
		return "", nil
	}
	return readString(raw, l)
}

// decodeTimestamp converts a 12-byte UDF timestamp (distilled spec §6)
// to a UTC time.Time. Grounded on go-bdinfo's convertTimestamp
// (internal/fs/udf/file.go), extended to honor the timezone field the
// teacher's version dropped entirely.
func decodeTimestamp(ts Timestamp) time.Time {
	typeAndTZ := ts.TypeAndTimezone
	tzRaw := int16(typeAndTZ << 4) >> 4 // sign-extend low 12 bits
	tzMinutes := 0
	if tzRaw != -2047 { // sentinel: "no timezone"
		tzMinutes = int(tzRaw)
	}

	us := int(ts.Centiseconds)*10000 + int(ts.HundredsOfMicroseconds)*100 + int(ts.Microseconds)

	t := time.Date(
		int(ts.Year),
		time.Month(ts.Month),
		int(ts.Day),
		int(ts.Hour),
		int(ts.Minute),
		int(ts.Second),
		us*1000,
		time.UTC,
	)
	return t.Add(-time.Duration(tzMinutes) * time.Minute)
}
