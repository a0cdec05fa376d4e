package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendFrame(t *testing.T) {
	got, err := AppendFrame(nil, SeqDest, nil)
	if err != nil {
		t.Fatalf("AppendFrame failed: %v", err)
	}
	// 0x9E81 is the CRC of {5, 0x10}
	want := []byte{5, 0x10, 0x9E, 0x81, SyncByte}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ack frame mismatch (-want +got):\n%s", diff)
	}

	if _, err := AppendFrame(nil, SeqDest, make([]byte, PayloadMax+1)); !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
}

func TestScanFrame(t *testing.T) {
	data, _ := AppendFrame([]byte{SyncByte, SyncByte}, 0x13, []byte{1, 2, 3})
	data = append(data, 0xAA)

	f, n, err := ScanFrame(data)
	if err != nil {
		t.Fatalf("ScanFrame failed: %v", err)
	}
	if n != len(data)-1 {
		t.Errorf("Expected %d bytes consumed, got %d", len(data)-1, n)
	}
	if f.Seq != 0x13 {
		t.Errorf("Expected seq 0x13, got 0x%02x", f.Seq)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, f.Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestScanFrameErrors(t *testing.T) {
	good, _ := AppendFrame(nil, SeqDest, []byte{7})
	badCRC := append([]byte(nil), good...)
	badCRC[2] ^= 0xFF
	badSync := append([]byte(nil), good...)
	badSync[len(badSync)-1] = 0
	badSeq := append([]byte(nil), good...)
	badSeq[1] = 0x20

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNeedMore},
		{"partial", good[:len(good)-1], ErrNeedMore},
		{"length", []byte{2, 0x10, 0, 0, SyncByte}, ErrBadFrame},
		{"crc", badCRC, ErrBadFrame},
		{"sync", badSync, ErrBadFrame},
		{"sequence", badSeq, ErrBadFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ScanFrame(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestResync(t *testing.T) {
	if n := Resync([]byte{1, 2, SyncByte, 4}); n != 3 {
		t.Errorf("Expected 3, got %d", n)
	}
	if n := Resync([]byte{1, 2}); n != 2 {
		t.Errorf("Expected 2, got %d", n)
	}
}

func TestNextSeq(t *testing.T) {
	if NextSeq(0x10) != 0x11 || NextSeq(0x1F) != 0x10 {
		t.Errorf("sequence does not wrap within 0x10-0x1f")
	}
}
