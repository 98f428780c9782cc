package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRelatedFileImagesConflict is returned when related files can't go back to a single image
var ErrRelatedFileImagesConflict = errors.New("there are related files with more than 1 related image")

const (
	backfillRelatedFileImagesSQL = `
		INSERT INTO engine_relatedfile_images (relatedfile_id, image_id)
		SELECT id, primary_image_id FROM engine_relatedfile
		WHERE primary_image_id IS NOT NULL`

	topRelatedFileUsesSQL = `
		SELECT rfi.relatedfile_id, COUNT(*) AS images_count
		FROM engine_relatedfile_images rfi
		JOIN engine_image i ON i.id = rfi.image_id
		WHERE NOT i.is_placeholder
		GROUP BY rfi.relatedfile_id
		HAVING COUNT(*) > 1
		ORDER BY images_count DESC, rfi.relatedfile_id
		LIMIT 10`

	restorePrimaryImageSQL = `
		UPDATE engine_relatedfile rf SET primary_image_id = (
			SELECT rfi.image_id FROM engine_relatedfile_images rfi
			WHERE rfi.relatedfile_id = rf.id
			ORDER BY rfi.id
			LIMIT 1
		)
		WHERE EXISTS (
			SELECT 1 FROM engine_relatedfile_images rfi
			JOIN engine_image i ON i.id = rfi.image_id
			WHERE rfi.relatedfile_id = rf.id AND NOT i.is_placeholder
		)`
)

// RelatedFileUse is the number of real images linked to a related file
type RelatedFileUse struct {
	RelatedFileID int
	Images        int64
}

// BackfillRelatedFileImages links every related file to its primary image
func BackfillRelatedFileImages(ctx context.Context, db DB) (int64, error) {
	tag, err := db.Exec(ctx, backfillRelatedFileImagesSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill related file images: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TopRelatedFileUses lists up to 10 related files linked to more than one real image
func TopRelatedFileUses(ctx context.Context, db DB) ([]RelatedFileUse, error) {
	rows, err := db.Query(ctx, topRelatedFileUsesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to count related file images: %w", err)
	}
	defer rows.Close()

	var uses []RelatedFileUse
	for rows.Next() {
		var u RelatedFileUse
		if err := rows.Scan(&u.RelatedFileID, &u.Images); err != nil {
			return nil, fmt.Errorf("failed to scan related file use: %w", err)
		}
		uses = append(uses, u)
	}
	return uses, rows.Err()
}

// RevertRelatedFileImages restores primary_image_id from the m2m table.
// It refuses when a related file has several real images.
func RevertRelatedFileImages(ctx context.Context, db DB) (int64, error) {
	uses, err := TopRelatedFileUses(ctx, db)
	if err != nil {
		return 0, err
	}
	if len(uses) > 0 {
		lines := make([]string, len(uses))
		for i, u := range uses {
			lines[i] = fmt.Sprintf("\n\tid = %d: %d", u.RelatedFileID, u.Images)
		}
		return 0, fmt.Errorf("%w, top related file uses: %s", ErrRelatedFileImagesConflict, strings.Join(lines, ", "))
	}

	tag, err := db.Exec(ctx, restorePrimaryImageSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to restore related file primary images: %w", err)
	}
	return tag.RowsAffected(), nil
}
