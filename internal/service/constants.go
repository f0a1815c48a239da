package service

import "time"

const (
	// DefaultMaxSessionMinutes is the generic DurationTrim window
	DefaultMaxSessionMinutes = 60

	// DefaultMaxRecording is the longest recording accepted for QC
	DefaultMaxRecording = 4 * time.Hour

	// DefaultSnapTo is the zone boundary rounding step in bpm
	DefaultSnapTo = 5
)

// Defect messages
const (
	MsgHRMissing    = "hr data missing for zone QC"
	MsgWeekParse    = "could not parse week from filename; file skipped"
	MsgMissing      = "missing significant time"
	MsgNaNRun       = "more than 30 NaNs in a row"
	MsgDurationTrim = "recording trimmed to %d minutes"
	MsgLongFile     = "recording longer than %g hours; file ignored"
	MsgBoundedShort = "longest bounded bout %s is shorter than the prescribed %d minutes"
	MsgZoneSummary  = "week %d: %s in allowed zones, %s above, %s below, longest bounded bout %s, bounded_met=%t"
)
