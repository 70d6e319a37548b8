package iamf

import (
	"testing"

	"github.com/ausocean/iamf/container/iamf/bits"
)

func TestIASequenceHeaderRoundTrip(t *testing.T) {
	h := IASequenceHeader{PrimaryProfile: ProfileSimple, AdditionalProfile: ProfileBase}
	w := bits.NewWriter(bits.Minimal)
	if err := h.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadIASequenceHeader(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.PrimaryProfile != h.PrimaryProfile || got.AdditionalProfile != h.AdditionalProfile {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestIASequenceHeaderFirstByteEncodesObuType(t *testing.T) {
	h := IASequenceHeader{PrimaryProfile: ProfileSimple, AdditionalProfile: ProfileBase}
	w := bits.NewWriter(bits.Minimal)
	if err := h.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	bytes := w.Bytes()
	if len(bytes) == 0 {
		t.Fatal("no bytes written")
	}
	gotType := bytes[0] >> 3
	if ObuType(gotType) != ObuIASequenceHeader {
		t.Errorf("got obu_type %d, want %d", gotType, ObuIASequenceHeader)
	}
}

func TestIASequenceHeaderRejectsBadMagic(t *testing.T) {
	w := bits.NewWriter(bits.Minimal)
	payload := bits.NewWriter(bits.Minimal)
	if err := payload.WriteUnsignedLiteral(0xdeadbeef, 32); err != nil {
		t.Fatal(err)
	}
	if err := payload.WriteUnsignedLiteral(0, 16); err != nil {
		t.Fatal(err)
	}
	var hdr ObuHeader
	hdr.ObuType = ObuIASequenceHeader
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint8Span(payload.Bytes()); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadIASequenceHeader(bits.NewReader(w.Bytes())); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
