package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		NewBinary(OpI32Add, 2, 0, 1),
		NewBinaryImm16(OpI32AddImm16, 3, 0, 42),
		NewUnary(OpI32Eqz, 4, 3),
		NewCopy(5, 4),
		NewBr(BranchOffset(-12)),
		NewBrIf(false, 1, BranchOffset(100000)),
	}
}

func TestRoundTrip_SafeDecode(t *testing.T) {
	want := sampleRecords()
	buf := Encode(want)
	require.Len(t, buf, len(want)*Size)

	got, err := SafeDecode(buf)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("safe decode mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_UnsafeDecode(t *testing.T) {
	want := sampleRecords()
	buf := Encode(want)

	got := UnsafeDecode(buf)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unsafe decode mismatch (-want +got):\n%s", diff)
	}
}

func TestSafeDecode_TruncatedBuffer(t *testing.T) {
	_, err := SafeDecode([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestBranchOffset_RoundTrips(t *testing.T) {
	for _, want := range []BranchOffset{0, 1, -1, 12345, -12345, 1 << 20, -(1 << 20)} {
		r := NewBr(want)
		require.Equal(t, want, r.Offset())
	}
}
