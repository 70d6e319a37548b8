package bits

import "testing"

func TestMinimalUleb128Lengths(t *testing.T) {
	cases := []struct {
		value uint64
		want  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{0xFFFFFFFF, 5},
	}
	for _, c := range cases {
		enc, err := EncodeUleb128(c.value, Minimal)
		if err != nil {
			t.Fatalf("EncodeUleb128(%d): %v", c.value, err)
		}
		if len(enc) != c.want {
			t.Errorf("EncodeUleb128(%d) length = %d, want %d", c.value, len(enc), c.want)
		}
		value, n, err := DecodeUleb128(enc)
		if err != nil {
			t.Fatalf("DecodeUleb128(%v): %v", enc, err)
		}
		if value != c.value || n != len(enc) {
			t.Errorf("DecodeUleb128(%v) = (%d, %d), want (%d, %d)", enc, value, n, c.value, len(enc))
		}
	}
}

func TestFixedSizeUleb128(t *testing.T) {
	for n := 1; n <= 8; n++ {
		enc, err := EncodeUleb128(42, FixedSize(n))
		if err != nil {
			t.Fatalf("FixedSize(%d): %v", n, err)
		}
		if len(enc) != n {
			t.Errorf("FixedSize(%d) produced %d bytes, want %d", n, len(enc), n)
		}
		value, read, err := DecodeUleb128(enc)
		if err != nil {
			t.Fatalf("DecodeUleb128: %v", err)
		}
		if value != 42 || read != n {
			t.Errorf("round-trip FixedSize(%d) = (%d, %d), want (42, %d)", n, value, read, n)
		}
	}
}

func TestFixedSizeTooSmall(t *testing.T) {
	if _, err := EncodeUleb128(16384, FixedSize(2)); err == nil {
		t.Fatal("expected error encoding 16384 into FixedSize(2)")
	}
}

func TestFixedSizeOutOfRange(t *testing.T) {
	if _, err := EncodeUleb128(1, FixedSize(9)); err == nil {
		t.Fatal("expected error for FixedSize(9)")
	}
	if _, err := EncodeUleb128(1, FixedSize(0)); err == nil {
		t.Fatal("expected error for FixedSize(0)")
	}
}

func TestEncodeUleb128ValueTooLarge(t *testing.T) {
	if _, err := EncodeUleb128(0x100000000, Minimal); err == nil {
		t.Fatal("expected error encoding value beyond uint32 range")
	}
}

func TestDecodeUleb128TooManyContinuationBytes(t *testing.T) {
	data := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}
	if _, _, err := DecodeUleb128(data); err == nil {
		t.Fatal("expected error for more than 8 continuation bytes")
	}
}

func TestDecodeUleb128NeedsMoreData(t *testing.T) {
	data := []byte{0x80, 0x80}
	_, _, err := DecodeUleb128(data)
	if err == nil {
		t.Fatal("expected error for truncated uleb128")
	}
}
