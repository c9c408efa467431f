package serialbus

import (
	"testing"

	"github.com/tetra-robotics/armlink/internal/bus"
)

func record(t *testing.T, id uint32, payload []byte) []byte {
	t.Helper()
	f, err := bus.NewFrame(id, payload)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return appendRecord(nil, f)
}

func TestRecordRoundTrip(t *testing.T) {
	raw := record(t, 0x123, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	f, consumed, ok := scanRecord(raw)
	if !ok {
		t.Fatal("scanRecord did not find the record")
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if f.ID != 0x123 || f.Len != 4 {
		t.Errorf("frame = %v", f)
	}
	if got := f.Payload(); got[0] != 0xDE || got[3] != 0xEF {
		t.Errorf("payload = % X", got)
	}
}

func TestRecordEmptyPayload(t *testing.T) {
	raw := record(t, 0x500, nil)
	f, _, ok := scanRecord(raw)
	if !ok || f.ID != 0x500 || f.Len != 0 {
		t.Errorf("scan = %v ok=%v", f, ok)
	}
}

func TestScanSkipsGarbagePrefix(t *testing.T) {
	raw := append([]byte{0x00, 0xFF, 0x42}, record(t, 0x300, []byte{1, 2})...)
	f, consumed, ok := scanRecord(raw)
	if !ok {
		t.Fatal("record after garbage not found")
	}
	if f.ID != 0x300 {
		t.Errorf("id = 0x%X", f.ID)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
}

func TestScanPartialRecordConsumesNothing(t *testing.T) {
	raw := record(t, 0x123, []byte{1, 2, 3, 4})
	partial := raw[:len(raw)-2]

	_, consumed, ok := scanRecord(partial)
	if ok {
		t.Fatal("partial record reported as complete")
	}
	if consumed != 0 {
		t.Errorf("partial record consumed %d bytes; retry would lose data", consumed)
	}
}

func TestScanRejectsBadChecksum(t *testing.T) {
	raw := record(t, 0x123, []byte{1, 2, 3, 4})
	raw[5] ^= 0xFF // corrupt a payload byte

	_, _, ok := scanRecord(raw)
	if ok {
		t.Error("corrupted record passed the checksum")
	}
}

func TestScanResyncsAfterCorruption(t *testing.T) {
	bad := record(t, 0x111, []byte{9, 9})
	bad[2] ^= 0x55 // corrupt the id; checksum now fails
	good := record(t, 0x222, []byte{7})

	raw := append(bad, good...)
	f, consumed, ok := scanRecord(raw)
	if !ok {
		t.Fatal("scanner did not resync onto the good record")
	}
	if f.ID != 0x222 {
		t.Errorf("id = 0x%X, want 0x222", f.ID)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
}

func TestScanMarkerInsidePayload(t *testing.T) {
	// A payload byte equal to the start marker must not derail the scan.
	raw := record(t, 0x123, []byte{startMarker, startMarker, 0x01})
	f, _, ok := scanRecord(raw)
	if !ok {
		t.Fatal("record with marker bytes in payload not decoded")
	}
	if p := f.Payload(); p[0] != startMarker || p[2] != 0x01 {
		t.Errorf("payload = % X", p)
	}
}

func TestScanBackToBackRecords(t *testing.T) {
	raw := append(record(t, 0x100, []byte{1}), record(t, 0x101, []byte{2})...)

	f1, consumed, ok := scanRecord(raw)
	if !ok || f1.ID != 0x100 {
		t.Fatalf("first scan = %v ok=%v", f1, ok)
	}
	f2, _, ok := scanRecord(raw[consumed:])
	if !ok || f2.ID != 0x101 {
		t.Fatalf("second scan = %v ok=%v", f2, ok)
	}
}
