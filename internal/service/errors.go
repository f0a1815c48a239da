package service

import "fmt"

// Stage is a step of the per-file QC pipeline
type Stage string

const (
	StageStart            Stage = "start"
	StageDurationTrim     Stage = "duration_trim"
	StageGapOrNaNCheck    Stage = "gap_or_nan_check"
	StageZoneContextBuild Stage = "zone_context_build"
	StageClassify         Stage = "classify"
	StageBoutAnalysis     Stage = "bout_analysis"
	StageLoadIndices      Stage = "load_indices"
	StageDone             Stage = "done"

	// batch stages before the session pipeline
	StageRead     Stage = "read"
	StageRegistry Stage = "registry"
)

// StructuralError is a fault that stops processing of one file. The batch
// records it against the file as an error defect and moves on.
type StructuralError struct {
	File  string
	Stage Stage
	Err   error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.File, e.Stage, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}
