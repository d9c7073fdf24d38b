package transform

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/julea-project/julea/cmn"
)

func TestXORRoundTrip_S1(t *testing.T) {
	input := []byte{0x41, 0x42, 0x43, 0x44}
	encoded, err := Apply(cmn.TransformXOR, false, input, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0xBE, 0xBD, 0xBC, 0xBB}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("encoded = % x, want % x", encoded, want)
	}
	decoded, err := Apply(cmn.TransformXOR, true, encoded, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, input) {
		t.Fatalf("decoded = % x, want % x", decoded, input)
	}
}

func TestRLEEncode_S2(t *testing.T) {
	input := bytes.Repeat([]byte{0x05}, 300)
	encoded, err := Apply(cmn.TransformRLE, false, input, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0xFF, 0x05, 0x2B, 0x05}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("encoded = % x, want % x", encoded, want)
	}
	if len(encoded) != 4 {
		t.Fatalf("transformed_size = %d, want 4", len(encoded))
	}
	decoded, err := Apply(cmn.TransformRLE, true, encoded, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, input) {
		t.Fatal("decoded RLE stream does not match original 300 bytes")
	}
	// S2: read bytes [100,150) => 50 bytes of 0x05.
	window := decoded[100:150]
	if !bytes.Equal(window, bytes.Repeat([]byte{0x05}, 50)) {
		t.Fatal("window [100,150) mismatch")
	}
}

// TestRLEEncode_S3 continues S2: overwrite 10 bytes of 0x07 at offset 295.
// NOTE: spec.md's prose states "transformed_size == 4" for this step while
// also listing the 6-byte encoded sequence 0xFF 0x05 0x26 0x05 0x09 0x07;
// those two statements are inconsistent. This implementation follows the
// literal byte sequence (3 RLE pairs, 6 bytes), matching the encoding
// algorithm applied consistently in S2.
func TestRLEEncode_S3(t *testing.T) {
	logical := append(bytes.Repeat([]byte{0x05}, 295), bytes.Repeat([]byte{0x07}, 10)...)
	if len(logical) != 305 {
		t.Fatalf("test setup: logical length = %d, want 305", len(logical))
	}
	encoded, err := Apply(cmn.TransformRLE, false, logical, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0xFF, 0x05, 0x26, 0x05, 0x09, 0x07}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("encoded = % x, want % x", encoded, want)
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	input := bytes.Repeat([]byte("abcdefgh"), 1000)
	encoded, err := Apply(cmn.TransformLZ4, false, input, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) >= len(input) {
		t.Fatalf("expected LZ4 to compress repetitive input: got %d >= %d", len(encoded), len(input))
	}
	decoded, err := Apply(cmn.TransformLZ4, true, encoded, len(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, input) {
		t.Fatal("LZ4 round trip mismatch")
	}
}

func TestRoundTripProperty(t *testing.T) {
	types := []cmn.TransformType{cmn.TransformNone, cmn.TransformXOR, cmn.TransformRLE, cmn.TransformLZ4}
	rng := rand.New(rand.NewSource(1))
	for _, typ := range types {
		for trial := 0; trial < 20; trial++ {
			size := rng.Intn(4096)
			buf := make([]byte, size)
			rng.Read(buf)
			encoded, err := Apply(typ, false, buf, 0)
			if err != nil {
				t.Fatalf("%v encode: %v", typ, err)
			}
			decoded, err := Apply(typ, true, encoded, len(buf))
			if err != nil {
				t.Fatalf("%v decode: %v", typ, err)
			}
			if !bytes.Equal(decoded, buf) {
				t.Fatalf("%v round trip mismatch at size %d", typ, size)
			}
			if typ.SizePreserving() && len(encoded) != len(buf) {
				t.Fatalf("%v expected size-preserving, got %d != %d", typ, len(encoded), len(buf))
			}
		}
	}
}

func TestNeedWholeObject(t *testing.T) {
	cases := []struct {
		typ    cmn.TransformType
		caller cmn.Caller
		want   bool
	}{
		{cmn.TransformNone, cmn.CallerClientRead, false},
		{cmn.TransformXOR, cmn.CallerClientWrite, false},
		{cmn.TransformRLE, cmn.CallerClientRead, true},
		{cmn.TransformRLE, cmn.CallerClientWrite, true},
		{cmn.TransformLZ4, cmn.CallerClientRead, true},
		{cmn.TransformRLE, cmn.CallerServerRead, false},
		{cmn.TransformLZ4, cmn.CallerServerWrite, false},
	}
	for _, c := range cases {
		if got := NeedWholeObject(c.typ, c.caller); got != c.want {
			t.Errorf("NeedWholeObject(%v, %v) = %v, want %v", c.typ, c.caller, got, c.want)
		}
	}
}

func TestDirectionTable(t *testing.T) {
	cases := []struct {
		mode   cmn.TransformMode
		caller cmn.Caller
		want   Action
	}{
		{cmn.ModeClient, cmn.CallerClientRead, ActionInverse},
		{cmn.ModeClient, cmn.CallerClientWrite, ActionForward},
		{cmn.ModeClient, cmn.CallerServerRead, ActionSkip},
		{cmn.ModeClient, cmn.CallerServerWrite, ActionSkip},
		{cmn.ModeTransport, cmn.CallerClientRead, ActionInverse},
		{cmn.ModeTransport, cmn.CallerClientWrite, ActionForward},
		{cmn.ModeTransport, cmn.CallerServerRead, ActionForward},
		{cmn.ModeTransport, cmn.CallerServerWrite, ActionInverse},
		{cmn.ModeServer, cmn.CallerClientRead, ActionSkip},
		{cmn.ModeServer, cmn.CallerClientWrite, ActionSkip},
		{cmn.ModeServer, cmn.CallerServerRead, ActionInverse},
		{cmn.ModeServer, cmn.CallerServerWrite, ActionForward},
	}
	for _, c := range cases {
		if got := Direction(c.mode, c.caller); got != c.want {
			t.Errorf("Direction(%v, %v) = %v, want %v", c.mode, c.caller, got, c.want)
		}
	}
}
