package core

// IRQLine identifies an interrupt line on the interrupt controller
type IRQLine uint8

// InterruptController is the NVIC capability core code consumes.
type InterruptController interface {
	// EnableLine unmasks the line at the interrupt controller
	EnableLine(line IRQLine)

	// SetPriority sets the preemption priority; 0 is the most urgent
	SetPriority(line IRQLine, level uint8)
}
