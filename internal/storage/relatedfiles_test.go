package storage

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var useColumns = []string{"relatedfile_id", "images_count"}

func TestBackfillRelatedFileImages(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec("INSERT INTO engine_relatedfile_images").
		WillReturnResult(pgxmock.NewResult("INSERT", 4))

	n, err := BackfillRelatedFileImages(context.Background(), mock)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertRelatedFileImages(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("FROM engine_relatedfile_images rfi JOIN engine_image i").
		WillReturnRows(pgxmock.NewRows(useColumns))
	mock.ExpectExec("UPDATE engine_relatedfile rf SET primary_image_id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 6))

	n, err := RevertRelatedFileImages(context.Background(), mock)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertRelatedFileImages_Conflict(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("FROM engine_relatedfile_images rfi JOIN engine_image i").
		WillReturnRows(pgxmock.NewRows(useColumns).
			AddRow(3, int64(4)).
			AddRow(1, int64(2)))

	_, err := RevertRelatedFileImages(context.Background(), mock)
	assert.ErrorIs(t, err, ErrRelatedFileImagesConflict)
	assert.ErrorContains(t, err, "id = 3: 4")
	assert.ErrorContains(t, err, "id = 1: 2")

	// The update must not run
	assert.NoError(t, mock.ExpectationsWereMet())
}
