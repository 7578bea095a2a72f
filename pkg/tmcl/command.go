package tmcl

// Command identifies a TMCL instruction.
type Command byte

// Instruction set used by the motion controller.
const (
	CmdRotateRight  Command = 1 // ROR: rotate with velocity, position counter increasing
	CmdRotateLeft   Command = 2 // ROL: rotate with velocity, position counter decreasing
	CmdStop         Command = 3 // MST: soft stop with deceleration ramp
	CmdMoveTo       Command = 4 // MVP: move to position
	CmdSetParam     Command = 5 // SAP: set axis parameter (volatile)
	CmdGetParam     Command = 6 // GAP: get axis parameter
	CmdStoreParam   Command = 7 // STAP: persist axis parameter to EEPROM
	CmdRestoreParam Command = 8 // RSAP: restore axis parameter from EEPROM
)

// String returns the firmware mnemonic.
func (c Command) String() string {
	switch c {
	case CmdRotateRight:
		return "ROR"
	case CmdRotateLeft:
		return "ROL"
	case CmdStop:
		return "MST"
	case CmdMoveTo:
		return "MVP"
	case CmdSetParam:
		return "SAP"
	case CmdGetParam:
		return "GAP"
	case CmdStoreParam:
		return "STAP"
	case CmdRestoreParam:
		return "RSAP"
	}
	return "UNKNOWN"
}

// MoveMode selects how MVP interprets its value.
type MoveMode byte

const (
	// MoveAbsolute targets an absolute microstep position.
	MoveAbsolute MoveMode = 0
	// MoveRelative targets an offset from the current position.
	// The firmware supports it, but pkg/axis always resolves relative
	// targets client-side and transmits MoveAbsolute so travel limits
	// can be enforced before any hardware write.
	MoveRelative MoveMode = 1
)
