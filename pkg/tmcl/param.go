package tmcl

import "strconv"

// Param addresses one axis parameter register of the controller
// firmware. Registers are read with GAP, written with SAP (volatile
// until persisted with STAP).
type Param byte

// Axis parameter registers of the PD-110-42 firmware.
const (
	ParamTargetPosition      Param = 0 // microsteps
	ParamActualPosition      Param = 1 // microsteps
	ParamTargetSpeed         Param = 2
	ParamActualSpeed         Param = 3
	ParamMaxSpeed            Param = 4
	ParamMaxAcceleration     Param = 5
	ParamMaxCurrent          Param = 6 // mA
	ParamStandbyCurrent      Param = 7 // mA
	ParamTargetReached       Param = 8 // flag, 1 when the ramp completed
	ParamRefSwitchStatus     Param = 9
	ParamRightSwitchStatus   Param = 10
	ParamLeftSwitchStatus    Param = 11
	ParamRightSwitchDisable  Param = 12
	ParamLeftSwitchDisable   Param = 13
	ParamMinSpeed            Param = 130
	ParamActualAcceleration  Param = 135
	ParamRampMode            Param = 138
	ParamMicrostepResolution Param = 140 // exponent, microsteps per full step = 2^n
	ParamRefSwitchTolerance  Param = 141
	ParamSoftStopFlag        Param = 149
	ParamRampDivisor         Param = 153
	ParamPulseDivisor        Param = 154
	ParamReferencingMode     Param = 193
	ParamRefSearchSpeed      Param = 194
	ParamRefSwitchSpeed      Param = 195
	ParamMixedDecayThreshold Param = 203
	ParamFreewheeling        Param = 204
	ParamStallThreshold      Param = 205
	ParamActualLoad          Param = 206
	ParamDriverErrorFlags    Param = 208
	ParamFullstepThreshold   Param = 211
	ParamPowerDownDelay      Param = 214 // unit of 10ms
)

var paramNames = map[Param]string{
	ParamTargetPosition:      "TargetPosition",
	ParamActualPosition:      "ActualPosition",
	ParamTargetSpeed:         "TargetSpeed",
	ParamActualSpeed:         "ActualSpeed",
	ParamMaxSpeed:            "MaxSpeed",
	ParamMaxAcceleration:     "MaxAcceleration",
	ParamMaxCurrent:          "MaxCurrent",
	ParamStandbyCurrent:      "StandbyCurrent",
	ParamTargetReached:       "TargetReached",
	ParamRefSwitchStatus:     "RefSwitchStatus",
	ParamRightSwitchStatus:   "RightSwitchStatus",
	ParamLeftSwitchStatus:    "LeftSwitchStatus",
	ParamRightSwitchDisable:  "RightSwitchDisable",
	ParamLeftSwitchDisable:   "LeftSwitchDisable",
	ParamMinSpeed:            "MinSpeed",
	ParamActualAcceleration:  "ActualAcceleration",
	ParamRampMode:            "RampMode",
	ParamMicrostepResolution: "MicrostepResolution",
	ParamRefSwitchTolerance:  "RefSwitchTolerance",
	ParamSoftStopFlag:        "SoftStopFlag",
	ParamRampDivisor:         "RampDivisor",
	ParamPulseDivisor:        "PulseDivisor",
	ParamReferencingMode:     "ReferencingMode",
	ParamRefSearchSpeed:      "RefSearchSpeed",
	ParamRefSwitchSpeed:      "RefSwitchSpeed",
	ParamMixedDecayThreshold: "MixedDecayThreshold",
	ParamFreewheeling:        "Freewheeling",
	ParamStallThreshold:      "StallThreshold",
	ParamActualLoad:          "ActualLoad",
	ParamDriverErrorFlags:    "DriverErrorFlags",
	ParamFullstepThreshold:   "FullstepThreshold",
	ParamPowerDownDelay:      "PowerDownDelay",
}

// String returns the register name, or the raw number for registers
// outside the known set.
func (p Param) String() string {
	if name, ok := paramNames[p]; ok {
		return name
	}
	return "Param(" + strconv.Itoa(int(p)) + ")"
}
