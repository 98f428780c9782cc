// Package frameset computes which dataset frames a segment covers.
//
// Three coordinate systems are involved: absolute frame numbers of the source
// media, sampled-frame ordinals used by segment bounds, and dataset-relative
// indices. The models package gives each one its own type.
package frameset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bdougie/gtlayout/internal/models"
)

// ErrUnknownSegmentType matches any UnknownSegmentTypeError
var ErrUnknownSegmentType = errors.New("unknown segment type")

// UnknownSegmentTypeError reports a segment whose type can't be resolved
type UnknownSegmentTypeError struct {
	SegmentID int
	Type      models.SegmentType
}

func (e *UnknownSegmentTypeError) Error() string {
	return fmt.Sprintf("segment %d: unknown segment type: %q", e.SegmentID, e.Type)
}

func (e *UnknownSegmentTypeError) Is(target error) bool {
	return target == ErrUnknownSegmentType
}

// RelFrameOf converts an absolute frame number to a dataset-relative index.
// The frame is expected to lie on the dataset's sampling grid.
func RelFrameOf(abs models.AbsFrame, ds models.Dataset) (models.RelFrame, error) {
	step, err := ParseStep(ds.FrameFilter)
	if err != nil {
		return 0, err
	}
	return relFrame(abs, ds.StartFrame, step), nil
}

// SegmentRelFrameSet returns the sorted dataset-relative indices covered by a segment
func SegmentRelFrameSet(seg models.Segment, ds models.Dataset) ([]models.RelFrame, error) {
	step, err := ParseStep(ds.FrameFilter)
	if err != nil {
		return nil, err
	}
	return resolve(seg, ds, step)
}

// Bounds returns the first and last absolute frames of a segment's nominal range.
// last < first means the range is empty.
func Bounds(seg models.Segment, ds models.Dataset, step int) (first, last models.AbsFrame) {
	first = ds.StartFrame + models.AbsFrame(int(seg.StartFrame)*step)
	last = min(ds.StartFrame+models.AbsFrame(int(seg.StopFrame)*step), ds.StopFrame)
	return first, last
}

func resolve(seg models.Segment, ds models.Dataset, step int) ([]models.RelFrame, error) {
	first, last := Bounds(seg, ds, step)

	switch seg.Type {
	case models.SegmentTypeRange:
		frames := make([]models.RelFrame, 0, max(0, int(last-first)/step+1))
		for abs := first; abs <= last; abs += models.AbsFrame(step) {
			frames = append(frames, relFrame(abs, ds.StartFrame, step))
		}
		return frames, nil

	case models.SegmentTypeSpecificFrames:
		frames := make([]models.RelFrame, 0, len(seg.Frames))
		for _, abs := range seg.Frames {
			if abs < first || abs > last || int(abs-first)%step != 0 {
				continue
			}
			frames = append(frames, relFrame(abs, ds.StartFrame, step))
		}
		slices.Sort(frames)
		return slices.Compact(frames), nil

	default:
		return nil, &UnknownSegmentTypeError{SegmentID: seg.ID, Type: seg.Type}
	}
}

// relFrame uses floor division, so frames before the start map below zero
func relFrame(abs, start models.AbsFrame, step int) models.RelFrame {
	d := int(abs - start)
	q := d / step
	if d%step != 0 && d < 0 {
		q--
	}
	return models.RelFrame(q)
}
