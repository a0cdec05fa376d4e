package i2c

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTraceDropsWhenFull(t *testing.T) {
	tr := NewTrace(3)
	for i := 0; i < 5; i++ {
		tr.Record(EventRxne, uint32(i), 0)
	}

	if tr.Len() != 3 || tr.Cap() != 3 {
		t.Fatalf("Expected len 3 cap 3, got len %d cap %d", tr.Len(), tr.Cap())
	}
	want := []TraceRecord{
		{Event: EventRxne, SR1: 0},
		{Event: EventRxne, SR1: 1},
		{Event: EventRxne, SR1: 2},
	}
	if diff := cmp.Diff(want, tr.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	tr.Clear()
	if tr.Len() != 0 || len(tr.Records()) != 0 {
		t.Errorf("Expected empty trace after Clear")
	}
	tr.Record(EventStopSent, 1, 2)
	if got := tr.Records(); len(got) != 1 || got[0].Event != EventStopSent {
		t.Errorf("Expected one STOP_SENT record, got %+v", got)
	}
}

func TestTraceRecordsIsCopy(t *testing.T) {
	tr := NewTrace(2)
	tr.Record(EventTxeOnly, 1, 1)
	recs := tr.Records()
	recs[0].Event = EventFatal
	if tr.Records()[0].Event != EventTxeOnly {
		t.Errorf("Records exposed internal storage")
	}
}

func TestTraceDump(t *testing.T) {
	tr := NewTrace(4)
	tr.Record(EventIRQEntry, SR1_SB, SR2_MSL|SR2_BUSY)
	tr.Record(EventStopSent, 0, 0)

	var lines []string
	tr.Dump(func(s string) { lines = append(lines, s) })

	want := []string{
		"[I2C] === trace: 2/4 ===",
		"[I2C] 0 IRQ_ENTRY sr1=0x0001 sr2=0x0003",
		"[I2C] 1 STOP_SENT sr1=0x0000 sr2=0x0000",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestTraceEventNames(t *testing.T) {
	for ev := EventIRQEntry; ev <= EventFatal; ev++ {
		if name := ev.String(); name == "UNKNOWN" || strings.ContainsAny(name, " ") {
			t.Errorf("event %d has no name", ev)
		}
	}
	if TraceEvent(0).String() != "UNKNOWN" || TraceEvent(200).String() != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN for out of range events")
	}
}

func TestTransferClearsTrace(t *testing.T) {
	rig, _ := newSimRig(t, newMemTarget(0x50))
	rig.dev.Trace().Record(EventFatal, 0, 0)

	if _, err := rig.dev.Transfer([]Message{{Addr: 0x50, Data: []byte{0x00}}}); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	for _, r := range rig.dev.Trace().Records() {
		if r.Event == EventFatal {
			t.Fatalf("trace not cleared at transfer start")
		}
	}
	recs := rig.dev.Trace().Records()
	if recs[len(recs)-1].Event != EventStopSent {
		t.Errorf("Expected trace to end in STOP_SENT, got %v", recs[len(recs)-1].Event)
	}
}

func TestTraceBoundedDuringTransfer(t *testing.T) {
	target := newMemTarget(0x50)
	rig := &testRig{
		regs:   &RegisterMap{},
		gpio:   newMockGPIO(),
		clocks: &mockClocks{},
		irq:    &mockIRQ{},
	}
	cfg := testConfig(rig)
	cfg.TraceCapacity = 8
	dev, err := NewDevice(cfg)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	rig.dev = dev
	sim := newSimBus(rig.regs, target)
	if err := dev.EnableMaster(0); err != nil {
		t.Fatalf("EnableMaster failed: %v", err)
	}
	sim.start(t, dev)

	payload := make([]byte, 33)
	for i := 1; i < len(payload); i++ {
		payload[i] = byte(i * 3)
	}
	if _, err := dev.Transfer([]Message{{Addr: 0x50, Data: payload}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if dev.Trace().Len() != dev.Trace().Cap() || dev.Trace().Cap() != 8 {
		t.Errorf("after write: trace %d/%d, want 8/8", dev.Trace().Len(), dev.Trace().Cap())
	}

	got := make([]byte, 32)
	msgs := []Message{
		{Addr: 0x50, Data: []byte{0x00}},
		{Addr: 0x50, Flags: MsgRead, Data: got},
	}
	if n, err := dev.Transfer(msgs); err != nil || n != 2 {
		t.Fatalf("Transfer = %d, %v", n, err)
	}
	if dev.Trace().Len() != dev.Trace().Cap() {
		t.Errorf("after read: trace %d/%d", dev.Trace().Len(), dev.Trace().Cap())
	}
	if diff := cmp.Diff(payload[1:], got); diff != "" {
		t.Errorf("read back (-want +got):\n%s", diff)
	}
}
