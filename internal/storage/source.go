package storage

import (
	"context"
	"fmt"

	"github.com/bdougie/gtlayout/internal/models"
)

const DefaultChunkSize = 100

const groundTruthJobsQuery = `
	SELECT j.id, s.id, s.type, s.start_frame, s.stop_frame, COALESCE(s.frames, ''),
		d.id, d.start_frame, d.stop_frame, COALESCE(d.frame_filter, '')
	FROM engine_job j
	JOIN engine_segment s ON s.id = j.segment_id
	JOIN engine_task t ON t.id = s.task_id
	JOIN engine_data d ON d.id = t.data_id
	WHERE j.type = 'ground_truth' AND j.id > $1
	ORDER BY j.id
	LIMIT $2`

// GroundTruthSource streams ground truth jobs with their segments and data
type GroundTruthSource struct {
	db        DB
	chunkSize int
}

// NewGroundTruthSource reads jobs from db, chunkSize rows per query
func NewGroundTruthSource(db DB, chunkSize int) *GroundTruthSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &GroundTruthSource{db: db, chunkSize: chunkSize}
}

// EachChunk calls fn with consecutive chunks of jobs, ordered by job id.
// Rows are closed before fn runs, so fn may use the same connection.
func (s *GroundTruthSource) EachChunk(ctx context.Context, fn func([]models.GroundTruthJob) error) error {
	lastID := 0
	for {
		chunk, err := s.readChunk(ctx, lastID)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}

		if err := fn(chunk); err != nil {
			return err
		}

		if len(chunk) < s.chunkSize {
			return nil
		}
		lastID = chunk[len(chunk)-1].JobID
	}
}

func (s *GroundTruthSource) readChunk(ctx context.Context, afterID int) ([]models.GroundTruthJob, error) {
	rows, err := s.db.Query(ctx, groundTruthJobsQuery, afterID, s.chunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query ground truth jobs: %w", err)
	}
	defer rows.Close()

	chunk := make([]models.GroundTruthJob, 0, s.chunkSize)
	for rows.Next() {
		var (
			jobID, segID, segStart, segStop int
			segType, segFrames              string
			dataID, dataStart, dataStop     int
			frameFilter                     string
		)
		if err := rows.Scan(&jobID, &segID, &segType, &segStart, &segStop, &segFrames,
			&dataID, &dataStart, &dataStop, &frameFilter); err != nil {
			return nil, fmt.Errorf("failed to scan ground truth job: %w", err)
		}

		frames, err := ParseIntArray[models.AbsFrame](segFrames)
		if err != nil {
			return nil, fmt.Errorf("job %d: segment %d frames: %w", jobID, segID, err)
		}

		chunk = append(chunk, models.GroundTruthJob{
			JobID: jobID,
			Segment: models.Segment{
				ID:         segID,
				Type:       models.SegmentType(segType),
				StartFrame: models.SegmentFrame(segStart),
				StopFrame:  models.SegmentFrame(segStop),
				Frames:     frames,
			},
			Dataset: models.Dataset{
				ID:          dataID,
				StartFrame:  models.AbsFrame(dataStart),
				StopFrame:   models.AbsFrame(dataStop),
				FrameFilter: frameFilter,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ground truth jobs: %w", err)
	}

	return chunk, nil
}
