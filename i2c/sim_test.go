package i2c

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"i2cmaster/core"
)

// memTarget is a register-file target: the first byte written after the
// address selects the register, further bytes write from there on, reads
// continue from the selected register.
type memTarget struct {
	addr  uint8
	mem   [256]byte
	ptr   uint8
	fresh bool
}

func newMemTarget(addr uint8) *memTarget {
	return &memTarget{addr: addr}
}

func (m *memTarget) write(b byte) {
	if m.fresh {
		m.ptr = b
		m.fresh = false
		return
	}
	m.mem[m.ptr] = b
	m.ptr++
}

func (m *memTarget) read() byte {
	b := m.mem[m.ptr]
	m.ptr++
	return b
}

// simBus models the STM32F1 I2C controller closely enough to drive the
// event and error interrupts: START/STOP requests, the SR1-then-SR2 ADDR
// clear sequence, DR plus shift register on transmit, ACK/NACK on receive.
// Bus progress happens in the pump goroutine, which also plays the role of
// the interrupt line.
type simBus struct {
	mu      sync.Mutex
	regs    *RegisterMap
	targets map[uint8]*memTarget

	startReq, stopReq bool
	msl, tra          bool
	sb, addr          bool
	sr1Read           bool
	af                bool
	injected          uint32
	faultOnAddr       uint32

	target   *memTarget
	txDR     int
	txShift  int
	btf      bool
	rxFull   bool
	rxNacked bool

	// frozen stops all bus progress, as when SCL is held low
	frozen bool
	// held makes SR2.BUSY read set while the bus is idle
	held bool

	log    []string
	faults []string

	done chan struct{}
	wg   sync.WaitGroup
}

func newSimBus(regs *RegisterMap, targets ...*memTarget) *simBus {
	s := &simBus{
		regs:    regs,
		targets: make(map[uint8]*memTarget),
		txDR:    -1,
		txShift: -1,
		done:    make(chan struct{}),
	}
	for _, t := range targets {
		s.targets[t.addr] = t
	}
	regs.CR1.SetHooks(&RegisterHooks{OnWrite: s.writeCR1})
	regs.DR.SetHooks(&RegisterHooks{OnRead: s.readDR, OnWrite: s.writeDR})
	regs.SR1.SetHooks(&RegisterHooks{OnRead: s.readSR1, OnWrite: s.writeSR1})
	regs.SR2.SetHooks(&RegisterHooks{OnRead: s.readSR2})
	return s
}

func (s *simBus) writeCR1(v uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v&CR1_START != 0 {
		s.startReq = true
	}
	if v&CR1_STOP != 0 {
		s.stopReq = true
	}
	return v &^ (CR1_START | CR1_STOP)
}

func (s *simBus) writeDR(v uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.sb:
		s.sb = false
		addr, read := uint8(v>>1), v&1 != 0
		t, ok := s.targets[addr]
		if !ok {
			s.logf("ADDR " + core.Hex(uint32(addr), 2) + " NACK")
			s.af = true
			return v
		}
		dir := " W"
		if read {
			dir = " R"
		}
		s.logf("ADDR " + core.Hex(uint32(addr), 2) + dir)
		s.injected |= s.faultOnAddr
		s.faultOnAddr = 0
		t.fresh = !read
		s.target = t
		s.tra = !read
		s.addr = true
		s.sr1Read = false
	case s.msl && s.tra && !s.addr:
		if s.txDR >= 0 {
			s.faults = append(s.faults, "DR overwritten")
		}
		s.txDR = int(v & 0xFF)
		s.btf = false
	default:
		s.faults = append(s.faults, "DR write outside transmit "+core.Hex(v, 2))
	}
	return v
}

func (s *simBus) readDR() {
	s.mu.Lock()
	s.rxFull = false
	s.mu.Unlock()
}

func (s *simBus) readSR1() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// a repeated start after BTF is generated without further bus activity
	if s.startReq && !s.frozen && s.atBoundary() {
		s.generateStart()
	}
	if s.addr {
		s.sr1Read = true
	}
	s.regs.SR1.Poke(s.sr1())
}

func (s *simBus) writeSR1(v uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v&SR1_AF == 0 {
		s.af = false
	}
	s.injected &= v | ^uint32(SR1_ErrorMsk)
	return s.sr1()
}

func (s *simBus) readSR2() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr && s.sr1Read {
		s.addr = false
		s.sr1Read = false
	}
	var v uint32
	if s.msl {
		v |= SR2_MSL | SR2_BUSY
	}
	if s.held {
		v |= SR2_BUSY
	}
	if s.msl && s.tra {
		v |= SR2_TRA
	}
	s.regs.SR2.Poke(v)
}

func (s *simBus) txe() bool {
	return s.msl && s.tra && !s.sb && !s.addr && s.txDR < 0
}

func (s *simBus) sr1() uint32 {
	v := s.injected
	if s.sb {
		v |= SR1_SB
	}
	if s.addr {
		v |= SR1_ADDR
	}
	if s.txe() {
		v |= SR1_TXE
	}
	if s.btf {
		v |= SR1_BTF
	}
	if s.rxFull {
		v |= SR1_RXNE
	}
	if s.af {
		v |= SR1_AF
	}
	return v
}

// atBoundary reports whether a START or STOP request can be executed now
func (s *simBus) atBoundary() bool {
	switch {
	case !s.msl, s.af:
		return true
	case s.sb, s.addr:
		return false
	case s.target == nil:
		return true
	case s.tra:
		return s.txDR < 0 && s.txShift < 0
	}
	return s.rxNacked && !s.rxFull
}

func (s *simBus) generateStart() {
	if s.msl {
		s.logf("RESTART")
	} else {
		s.logf("START")
	}
	s.startReq = false
	s.msl = true
	s.sb = true
	s.resetTransfer()
}

func (s *simBus) generateStop() {
	s.logf("STOP")
	s.stopReq = false
	s.msl = false
	s.sb = false
	s.addr = false
	s.resetTransfer()
}

func (s *simBus) resetTransfer() {
	s.tra = false
	s.target = nil
	s.txDR = -1
	s.txShift = -1
	s.btf = false
	s.rxNacked = false
}

// tick advances the bus by one step
func (s *simBus) tick() {
	if s.frozen {
		return
	}
	if s.stopReq && !s.msl {
		// STOP on an idle bus cancels a START that never made it out
		s.stopReq = false
		s.startReq = false
		return
	}
	if s.stopReq && s.atBoundary() {
		s.generateStop()
		return
	}
	if s.startReq && s.atBoundary() {
		s.generateStart()
		return
	}
	if !s.msl || s.sb || s.addr || s.target == nil {
		return
	}
	if s.tra {
		switch {
		case s.txShift < 0 && s.txDR >= 0:
			s.txShift, s.txDR = s.txDR, -1
		case s.txShift >= 0:
			b := byte(s.txShift)
			s.logf("W " + core.Hex(uint32(b), 2))
			s.target.write(b)
			s.txShift = -1
			if s.txDR >= 0 {
				s.txShift, s.txDR = s.txDR, -1
			} else {
				s.btf = true
			}
		}
		return
	}
	if s.rxFull || s.rxNacked {
		return
	}
	b := s.target.read()
	s.regs.DR.Poke(uint32(b))
	s.rxFull = true
	if s.regs.CR1.Peek()&CR1_ACK != 0 {
		s.logf("R " + core.Hex(uint32(b), 2) + " ACK")
	} else {
		s.logf("R " + core.Hex(uint32(b), 2) + " NACK")
		s.rxNacked = true
	}
}

// pending reports which interrupt lines are asserted
func (s *simBus) pending() (event, errIRQ bool) {
	cr2 := s.regs.CR2.Peek()
	if cr2&CR2_ITERREN != 0 && (s.af || s.injected != 0) {
		return false, true
	}
	if cr2&CR2_ITEVTEN != 0 {
		if s.sb || s.addr || s.btf {
			return true, false
		}
		if cr2&CR2_ITBUFEN != 0 && (s.txe() || s.rxFull) {
			return true, false
		}
	}
	return false, false
}

func (s *simBus) logf(line string) {
	s.log = append(s.log, line)
}

// start runs the bus and the interrupt line until the test ends
func (s *simBus) start(t *testing.T, d *Device) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			default:
			}
			s.mu.Lock()
			ev, er := s.pending()
			if !ev && !er {
				s.tick()
			}
			s.mu.Unlock()

			switch {
			case er:
				d.HandleError()
			case ev:
				d.HandleEvent()
			default:
				runtime.Gosched()
			}
		}
	}()
	t.Cleanup(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// settle waits until the bus is idle and no request is outstanding
func (s *simBus) settle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		idle := !s.msl && !s.startReq && !s.stopReq
		s.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("bus did not settle")
}

func (s *simBus) setFrozen(v bool) {
	s.mu.Lock()
	s.frozen = v
	s.mu.Unlock()
}

func (s *simBus) setHeld(v bool) {
	s.mu.Lock()
	s.held = v
	s.mu.Unlock()
}

// injectOnAddress raises the sr1 error flags once the next address byte
// is on the wire
func (s *simBus) injectOnAddress(sr1 uint32) {
	s.mu.Lock()
	s.faultOnAddr = sr1
	s.mu.Unlock()
}

// takeLog returns and clears the bus log
func (s *simBus) takeLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.log
	s.log = nil
	return l
}

func (s *simBus) takeFaults() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faults
	s.faults = nil
	return f
}
