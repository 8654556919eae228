package linestream

// State is the framing state a Framer carries between calls.
// It is the only piece of read state that survives a returned line, so a
// CR and its paired LF may arrive in different reads or different calls.
type State int

const (
	// StateLineData is normal accumulation of line bytes.
	StateLineData State = iota
	// StateSawCR means a CR ended the previous line and the byte after it
	// has not been looked at yet.
	StateSawCR
	// StateExcess means the current line reached the maximum length and the
	// rest of it is being discarded up to the next terminator.
	StateExcess
	// StateEOF is terminal: the stream is exhausted.
	StateEOF
)

// String returns a human readable state name.
func (s State) String() string {
	switch s {
	case StateLineData:
		return "line-data"
	case StateSawCR:
		return "saw-cr"
	case StateExcess:
		return "excess"
	case StateEOF:
		return "eof"
	default:
		return "unknown"
	}
}

const (
	cr = '\r'
	lf = '\n'
)

// action is what the read loop does with a byte after a transition.
type action int

const (
	// actAppend adds the byte to the line being assembled.
	actAppend action = iota
	// actEmit returns the assembled line.
	actEmit
	// actSkip drops the byte and keeps reading.
	actSkip
)

// step is the per-byte decision table. It must never be called in StateEOF.
//
//	byte   state            next       action
//	CR     excess           saw-cr     skip
//	CR     other            saw-cr     emit
//	LF     saw-cr, excess   line-data  skip
//	LF     other            line-data  emit
//	other  excess           excess     skip
//	other  other            line-data  append
func step(s State, b byte) (State, action) {
	switch b {
	case cr:
		if s == StateExcess {
			return StateSawCR, actSkip
		}
		return StateSawCR, actEmit
	case lf:
		if s == StateSawCR || s == StateExcess {
			return StateLineData, actSkip
		}
		return StateLineData, actEmit
	default:
		if s == StateExcess {
			return StateExcess, actSkip
		}
		return StateLineData, actAppend
	}
}
