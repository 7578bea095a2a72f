// Package axis drives one stepper motor axis of the scanner gantry
// through a TMCL motion controller. An Axis owns its serial transport
// and static calibration; motion commands block until the controller
// reports completion or the freeze watchdog declares the motion
// stalled. Group-level coordination across axes lives in pkg/gantry.
package axis
