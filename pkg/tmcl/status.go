package tmcl

// Status is the status byte of a reply frame.
type Status byte

// Status codes defined by the TMCL firmware. Values 1-6 report error
// conditions, 100-101 report success conditions.
const (
	StatusWrongChecksum       Status = 1
	StatusInvalidCommand      Status = 2
	StatusWrongType           Status = 3
	StatusInvalidValue        Status = 4
	StatusEEPROMLocked        Status = 5
	StatusCommandNotAvailable Status = 6
	StatusSuccess             Status = 100
	StatusCommandLoaded       Status = 101
)

var statusDescriptions = map[Status]string{
	StatusSuccess:             "successfully executed, no error",
	StatusCommandLoaded:       "command loaded into TMCL program EEPROM",
	StatusWrongChecksum:       "wrong checksum",
	StatusInvalidCommand:      "invalid command",
	StatusWrongType:           "wrong type",
	StatusInvalidValue:        "invalid value",
	StatusEEPROMLocked:        "configuration EEPROM locked",
	StatusCommandNotAvailable: "command not available",
}

// IsKnown checks if the byte belongs to the defined code set.
func (s Status) IsKnown() bool {
	_, ok := statusDescriptions[s]
	return ok
}

// IsError reports whether the status is one of the firmware error
// conditions (codes 1-6).
func (s Status) IsError() bool {
	return s >= StatusWrongChecksum && s <= StatusCommandNotAvailable
}

// IsOK reports whether the status is a success condition.
func (s Status) IsOK() bool {
	return s == StatusSuccess || s == StatusCommandLoaded
}

// Description returns the firmware manual wording for the code.
func (s Status) Description() string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return "unknown status"
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return s.Description()
}
