package iamf

import (
	"bytes"
	"testing"

	"github.com/ausocean/iamf/container/iamf/bits"
)

func TestArbitraryRoundTrip(t *testing.T) {
	a := Arbitrary{Payload: []byte{1, 2, 3}, InsertionHook: InsertAfterAudioElements}
	w := bits.NewWriter(bits.Minimal)
	if err := a.Write(w, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadArbitrary(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got.Payload, a.Payload) {
		t.Errorf("got payload %v, want %v", got.Payload, a.Payload)
	}
}

func TestArbitraryInvalidateBitstreamRefusesByDefault(t *testing.T) {
	a := Arbitrary{Payload: []byte{1}, InvalidateBitstream: true}
	w := bits.NewWriter(bits.Minimal)
	if err := a.Write(w, false); err == nil {
		t.Fatal("expected ErrInvalidBitstream")
	}
}

func TestArbitraryInvalidateBitstreamAllowedExplicitly(t *testing.T) {
	a := Arbitrary{Payload: []byte{1}, InvalidateBitstream: true}
	w := bits.NewWriter(bits.Minimal)
	if err := a.Write(w, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestArbitraryTickHookRequiresInsertionTick(t *testing.T) {
	a := Arbitrary{Payload: []byte{1}, InsertionHook: InsertAfterAudioFramesWithTick}
	w := bits.NewWriter(bits.Minimal)
	if err := a.Write(w, false); err == nil {
		t.Fatal("expected error for tick hook missing an insertion tick")
	}
	a.HasInsertionTick = true
	a.InsertionTick = 7
	if err := a.Write(w, false); err != nil {
		t.Fatalf("unexpected error once insertion tick is set: %v", err)
	}
}
