package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/gtlayout/internal/models"
)

var jobColumns = []string{
	"job_id", "segment_id", "type", "start_frame", "stop_frame", "frames",
	"data_id", "data_start_frame", "data_stop_frame", "frame_filter",
}

const jobsQueryPattern = `FROM engine_job j JOIN engine_segment s`

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestGroundTruthSource_EachChunk(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(jobsQueryPattern).WithArgs(0, 2).WillReturnRows(
		pgxmock.NewRows(jobColumns).
			AddRow(5, 50, "range", 0, 5, "", 3, 10, 40, "step=2").
			AddRow(7, 70, "specific_frames", 0, 5, "10,14,18,25", 3, 10, 40, "step=2"),
	)
	mock.ExpectQuery(jobsQueryPattern).WithArgs(7, 2).WillReturnRows(
		pgxmock.NewRows(jobColumns).
			AddRow(9, 90, "range", 2, 3, "", 4, 0, 100, ""),
	)

	var chunks [][]models.GroundTruthJob
	err := NewGroundTruthSource(mock, 2).EachChunk(context.Background(), func(jobs []models.GroundTruthJob) error {
		chunks = append(chunks, jobs)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], 2)
	require.Len(t, chunks[1], 1)

	assert.Equal(t, models.GroundTruthJob{
		JobID: 7,
		Segment: models.Segment{
			ID:         70,
			Type:       models.SegmentTypeSpecificFrames,
			StartFrame: 0,
			StopFrame:  5,
			Frames:     []models.AbsFrame{10, 14, 18, 25},
		},
		Dataset: models.Dataset{ID: 3, StartFrame: 10, StopFrame: 40, FrameFilter: "step=2"},
	}, chunks[0][1])
	assert.Equal(t, []models.AbsFrame{}, chunks[0][0].Segment.Frames)
	assert.Equal(t, 9, chunks[1][0].JobID)
	assert.Equal(t, "", chunks[1][0].Dataset.FrameFilter)
}

func TestGroundTruthSource_FullLastChunk(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(jobsQueryPattern).WithArgs(0, 1).WillReturnRows(
		pgxmock.NewRows(jobColumns).AddRow(1, 10, "range", 0, 1, "", 1, 0, 10, "step=1"),
	)
	mock.ExpectQuery(jobsQueryPattern).WithArgs(1, 1).WillReturnRows(pgxmock.NewRows(jobColumns))

	calls := 0
	err := NewGroundTruthSource(mock, 1).EachChunk(context.Background(), func([]models.GroundTruthJob) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroundTruthSource_StopsOnCallbackError(t *testing.T) {
	mock := newMockPool(t)
	stop := errors.New("stop")

	mock.ExpectQuery(jobsQueryPattern).WithArgs(0, 1).WillReturnRows(
		pgxmock.NewRows(jobColumns).AddRow(1, 10, "range", 0, 1, "", 1, 0, 10, "step=1"),
	)

	err := NewGroundTruthSource(mock, 1).EachChunk(context.Background(), func([]models.GroundTruthJob) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroundTruthSource_BadFrames(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(jobsQueryPattern).WithArgs(0, DefaultChunkSize).WillReturnRows(
		pgxmock.NewRows(jobColumns).AddRow(1, 10, "specific_frames", 0, 1, "1,x", 1, 0, 10, ""),
	)

	err := NewGroundTruthSource(mock, 0).EachChunk(context.Background(), func([]models.GroundTruthJob) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.ErrorContains(t, err, "segment 10 frames")
}

func TestGroundTruthSource_QueryError(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(jobsQueryPattern).WillReturnError(errors.New("relation does not exist"))

	err := NewGroundTruthSource(mock, 10).EachChunk(context.Background(), func([]models.GroundTruthJob) error {
		return nil
	})
	assert.ErrorContains(t, err, "failed to query ground truth jobs")
}
