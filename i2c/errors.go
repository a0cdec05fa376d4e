package i2c

import "errors"

var (
	// ErrBusHang reports a line that never released during recovery or a
	// transaction that never reached a terminal state before its deadline.
	ErrBusHang = errors.New("i2c: bus hang")

	// ErrInternal reports a status the state machine cannot reconcile with
	// its position in the transaction. The device is left in StateError.
	ErrInternal = errors.New("i2c: internal inconsistency")

	ErrNack            = errors.New("i2c: not acknowledged")
	ErrBusError        = errors.New("i2c: misplaced start or stop")
	ErrArbitrationLost = errors.New("i2c: arbitration lost")
	ErrOverrun         = errors.New("i2c: overrun")
	ErrTimeout         = errors.New("i2c: SCL low timeout")

	ErrNoMessages        = errors.New("i2c: no messages")
	ErrEmptyMessage      = errors.New("i2c: zero-length message")
	ErrInvalidAddress    = errors.New("i2c: address out of 7-bit range")
	ErrNotEnabled        = errors.New("i2c: master not enabled")
	ErrBusy              = errors.New("i2c: transfer already in flight")
	ErrTenBitUnsupported = errors.New("i2c: 10-bit addressing not supported")
	ErrInvalidSpeed      = errors.New("i2c: unsupported bus speed")
	ErrInvalidConfig     = errors.New("i2c: invalid configuration")
)

// statusError maps SR1 error flags to an error. Flags are checked in order
// of severity; nil means no error flag is set.
func statusError(sr1 uint32) error {
	switch {
	case sr1&SR1_BERR != 0:
		return ErrBusError
	case sr1&SR1_ARLO != 0:
		return ErrArbitrationLost
	case sr1&SR1_AF != 0:
		return ErrNack
	case sr1&SR1_OVR != 0:
		return ErrOverrun
	case sr1&SR1_TIMEOUT != 0:
		return ErrTimeout
	case sr1&SR1_PECERR != 0:
		return ErrBusError
	}
	return nil
}

// transferErrors is indexed by the code a handler publishes with the
// terminal state. Index 0 is no error.
var transferErrors = [...]error{
	nil,
	ErrNack,
	ErrBusError,
	ErrArbitrationLost,
	ErrOverrun,
	ErrTimeout,
	ErrBusHang,
	ErrInternal,
}

func errorCode(err error) uint32 {
	for i, e := range transferErrors {
		if e == err {
			return uint32(i)
		}
	}
	return uint32(len(transferErrors) - 1)
}

func codeError(code uint32) error {
	if int(code) >= len(transferErrors) {
		return ErrInternal
	}
	return transferErrors[code]
}
