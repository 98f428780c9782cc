package models

// AbsFrame is a frame number in the original, unsampled media
type AbsFrame int

// RelFrame is a frame position in a dataset's sampled sequence, starting at 0
type RelFrame int

// SegmentFrame is a sampled-frame ordinal, as used by segment bounds
type SegmentFrame int

// Dataset represents the media data a task was created from
type Dataset struct {
	ID          int      `json:"id"`
	StartFrame  AbsFrame `json:"start_frame"`
	StopFrame   AbsFrame `json:"stop_frame"` // inclusive
	FrameFilter string   `json:"frame_filter"`
}

// SegmentType describes how a segment selects its frames
type SegmentType string

const (
	SegmentTypeRange          SegmentType = "range"
	SegmentTypeSpecificFrames SegmentType = "specific_frames"
)

// Segment represents one job's slice of a dataset
type Segment struct {
	ID         int          `json:"id"`
	Type       SegmentType  `json:"type"`
	StartFrame SegmentFrame `json:"start_frame"`
	StopFrame  SegmentFrame `json:"stop_frame"`

	// Frames is only used by specific_frames segments.
	Frames []AbsFrame `json:"frames,omitempty"`
}

// GroundTruthJob is a job of type ground_truth, joined with its segment and data
type GroundTruthJob struct {
	JobID   int
	Segment Segment
	Dataset Dataset
}
