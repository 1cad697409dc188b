package udf

import "testing"

func TestReadString_OSTA8BitStopsAtNUL(t *testing.T) {
	got, err := readString([]byte{8, 'A', 'B', 0, 'C'}, 5)
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if want := "AB"; got != want {
		t.Fatalf("readString=%q want %q", got, want)
	}
}

func TestReadString_OSTA16BitBigEndian(t *testing.T) {
	data := []byte{
		16,
		0x00, 'H',
		0x00, 'I',
	}
	got, err := readString(data, len(data))
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if want := "HI"; got != want {
		t.Fatalf("readString=%q want %q", got, want)
	}
}

func TestReadString_UnsupportedCompressionID(t *testing.T) {
	if _, err := readString([]byte{3, 'x'}, 2); err == nil {
		t.Fatal("expected error for unsupported compression id")
	}
}

func TestReadDstring_LengthByteClampedToFieldSize(t *testing.T) {
	// 8-byte dstring field where the trailing length byte (10) overruns
	// the field; the decoder clamps to sz-1 rather than failing.
	field := []byte{8, 'A', 'B', 'C', 0, 0, 0, 10}
	got, err := readDstring(field, len(field))
	if err != nil {
		t.Fatalf("readDstring: %v", err)
	}
	if want := "ABC"; got != want {
		t.Fatalf("readDstring=%q want %q", got, want)
	}
}

func TestReadDstring_EmptyWhenFirstByteZero(t *testing.T) {
	field := make([]byte, 16)
	got, err := readDstring(field, len(field))
	if err != nil {
		t.Fatalf("readDstring: %v", err)
	}
	if got != "" {
		t.Fatalf("readDstring=%q want empty", got)
	}
}

func TestDecodeTimestamp_TimezoneSentinel(t *testing.T) {
	// TypeAndTimezone low 12 bits = -2047 (sentinel meaning "no timezone"):
	// 0x801 = 0b1000_0000_0001 => sign-extended 12-bit value is -2047.
	ts := Timestamp{
		TypeAndTimezone: 0x0801,
		Year:            2024, Month: 1, Day: 1,
		Hour: 12, Minute: 0, Second: 0,
	}
	got := decodeTimestamp(ts)
	if got.Hour() != 12 {
		t.Fatalf("hour=%d want 12 (sentinel should apply zero offset)", got.Hour())
	}
}

func TestDecodeTimestamp_AppliesTimezoneOffset(t *testing.T) {
	// tz = +60 minutes: low 12 bits = 60 (0x03C), type nibble arbitrary (0x1).
	ts := Timestamp{
		TypeAndTimezone: 0x1000 | 60,
		Year:            2024, Month: 1, Day: 1,
		Hour: 12, Minute: 0, Second: 0,
	}
	got := decodeTimestamp(ts)
	// local 12:00 at UTC+60min => 11:00 UTC.
	if got.Hour() != 11 {
		t.Fatalf("hour=%d want 11", got.Hour())
	}
}

func TestU32le_BoundsChecked(t *testing.T) {
	if _, err := u32le([]byte{1, 2, 3}, 0); err == nil {
		t.Fatal("expected truncation error")
	}
}
