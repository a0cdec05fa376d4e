package i2c

import "i2cmaster/core"

// TraceEvent identifies a protocol event recorded by the interrupt handlers
type TraceEvent uint8

const (
	EventIRQEntry TraceEvent = iota + 1
	EventTxeOnly
	EventTxeBtf
	EventStopSent
	EventRestartSent
	EventRxAddrStart
	EventRxAddrStop
	EventRxne
	EventRxStartSent
	EventRxStopSent
	EventRxDone
	EventErrorIRQ
	EventSpurious
	EventTimeout
	EventFatal
)

var traceEventNames = [...]string{
	EventIRQEntry:    "IRQ_ENTRY",
	EventTxeOnly:     "TXE_ONLY",
	EventTxeBtf:      "TXE_BTF",
	EventStopSent:    "STOP_SENT",
	EventRestartSent: "RESTART_SENT",
	EventRxAddrStart: "RX_ADDR_START",
	EventRxAddrStop:  "RX_ADDR_STOP",
	EventRxne:        "RXNE",
	EventRxStartSent: "RXNE_START_SENT",
	EventRxStopSent:  "RXNE_STOP_SENT",
	EventRxDone:      "RXNE_DONE",
	EventErrorIRQ:    "ERROR_IRQ",
	EventSpurious:    "SPURIOUS",
	EventTimeout:     "TIMEOUT",
	EventFatal:       "FATAL",
}

func (e TraceEvent) String() string {
	if int(e) < len(traceEventNames) && traceEventNames[e] != "" {
		return traceEventNames[e]
	}
	return "UNKNOWN"
}

// TraceRecord is one trace entry with the status snapshot taken with it
type TraceRecord struct {
	Event TraceEvent
	SR1   uint32
	SR2   uint32
}

// DefaultTraceCapacity is the trace size used when Config leaves it zero
const DefaultTraceCapacity = 100

// Trace is a fixed-capacity, insertion-ordered log of protocol events.
// Once full, further records are dropped; it never wraps. It is written
// from interrupt context and is only meant for post-mortem inspection.
type Trace struct {
	records []TraceRecord
	n       int
}

// NewTrace allocates a trace holding up to capacity records
func NewTrace(capacity int) *Trace {
	return &Trace{records: make([]TraceRecord, capacity)}
}

// Record appends an entry if capacity remains
func (t *Trace) Record(ev TraceEvent, sr1, sr2 uint32) {
	if t.n >= len(t.records) {
		return
	}
	t.records[t.n] = TraceRecord{Event: ev, SR1: sr1, SR2: sr2}
	t.n++
}

// Clear empties the trace
func (t *Trace) Clear() {
	for i := 0; i < t.n; i++ {
		t.records[i] = TraceRecord{}
	}
	t.n = 0
}

// Len returns the number of recorded entries
func (t *Trace) Len() int {
	return t.n
}

// Cap returns the fixed capacity
func (t *Trace) Cap() int {
	return len(t.records)
}

// Records returns a copy of the recorded entries in insertion order
func (t *Trace) Records() []TraceRecord {
	out := make([]TraceRecord, t.n)
	copy(out, t.records[:t.n])
	return out
}

// Dump writes one line per record to w
func (t *Trace) Dump(w core.DebugWriter) {
	w("[I2C] === trace: " + core.Itoa(t.n) + "/" + core.Itoa(len(t.records)) + " ===")
	for i := 0; i < t.n; i++ {
		r := &t.records[i]
		w("[I2C] " + core.Itoa(i) + " " + r.Event.String() +
			" sr1=" + core.Hex(r.SR1, 4) +
			" sr2=" + core.Hex(r.SR2, 4))
	}
}
