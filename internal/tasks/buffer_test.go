package tasks

import "testing"

func TestBoundedBufferPreservesEarliestBytes(t *testing.T) {
	b := NewOutputBuffer(10)
	b.Write([]byte("0123456789"))
	b.Write([]byte("overflow"))
	b.Finalize()
	got := b.String()
	if got[:10] != "0123456789" {
		t.Fatalf("expected earliest 10 bytes preserved, got %q", got)
	}
	if b.Total() != 18 {
		t.Fatalf("total = %d, want 18", b.Total())
	}
}

func TestBoundedBufferExactCapNoTruncationSentinel(t *testing.T) {
	b := NewOutputBuffer(5)
	b.Write([]byte("12345"))
	b.Finalize()
	if b.String() != "12345" {
		t.Fatalf("got %q, expected no sentinel when writes land exactly at cap", b.String())
	}
}

func TestBoundedBufferOneByteOverCapTruncates(t *testing.T) {
	b := NewOutputBuffer(5)
	b.Write([]byte("123456"))
	b.Finalize()
	got := b.String()
	if got[:5] != "12345" {
		t.Fatalf("expected first 5 bytes preserved, got %q", got)
	}
	if b.Total() != 6 {
		t.Fatalf("total = %d, want 6", b.Total())
	}
}

func TestBoundedBufferFinalizeIdempotent(t *testing.T) {
	b := NewOutputBuffer(3)
	b.Write([]byte("abcd"))
	b.Finalize()
	first := b.String()
	b.Finalize()
	if b.String() != first {
		t.Fatal("second Finalize call should not append another sentinel")
	}
}
