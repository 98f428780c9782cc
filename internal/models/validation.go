package models

// ValidationMode is the quality control mode of a task
type ValidationMode string

const (
	ValidationModeGT     ValidationMode = "gt"
	ValidationModeGTPool ValidationMode = "gt_pool"
)

// FrameSelectionMethod is how validation frames are picked
type FrameSelectionMethod string

const (
	FrameSelectionRandomUniform FrameSelectionMethod = "random_uniform"
	FrameSelectionRandomPerJob  FrameSelectionMethod = "random_per_job"
	FrameSelectionManual        FrameSelectionMethod = "manual"
)

// ValidationLayout lists the validation frames of a task's data
type ValidationLayout struct {
	DataID            int            `json:"task_data_id"`
	Mode              ValidationMode `json:"mode"`
	FramesPerJobCount *int           `json:"frames_per_job_count"`
	Frames            []RelFrame     `json:"frames"`
	DisabledFrames    []RelFrame     `json:"disabled_frames"`
}

// NewGroundTruthLayout builds the layout of a task with a ground truth job.
// Nil frames become an empty list.
func NewGroundTruthLayout(dataID int, frames []RelFrame) ValidationLayout {
	if frames == nil {
		frames = []RelFrame{}
	}
	return ValidationLayout{
		DataID:         dataID,
		Mode:           ValidationModeGT,
		Frames:         frames,
		DisabledFrames: []RelFrame{},
	}
}
