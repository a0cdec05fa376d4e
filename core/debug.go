package core

// DebugWriter receives one line of diagnostic output, without newline
type DebugWriter func(string)

var (
	debugOut     DebugWriter = func(string) {}
	debugEnabled bool
)

// SetDebugWriter routes diagnostics to a target-specific sink, usually a
// spare UART. A nil writer discards output.
func SetDebugWriter(writer DebugWriter) {
	debugOut = writer
}

// SetDebugEnabled switches routine diagnostics on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln emits msg if diagnostics are enabled
func DebugPrintln(msg string) {
	if debugEnabled && debugOut != nil {
		debugOut(msg)
	}
}

// Writer returns the sink regardless of the enabled flag.
// Post-mortem dumps use it so they are not lost when chatter is off.
func Writer() DebugWriter {
	if debugOut == nil {
		return func(string) {}
	}
	return debugOut
}
