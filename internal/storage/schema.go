package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdougie/gtlayout/internal/models"
)

// SchemaChange is a reversible DDL step
type SchemaChange struct {
	Name string
	Up   string
	Down string // empty when the step has nothing to undo
}

// Apply runs the forward DDL
func (c SchemaChange) Apply(ctx context.Context, db DB) error {
	return c.exec(ctx, db, c.Up)
}

// Revert runs the backward DDL
func (c SchemaChange) Revert(ctx context.Context, db DB) error {
	return c.exec(ctx, db, c.Down)
}

func (c SchemaChange) exec(ctx context.Context, db DB, sql string) error {
	if sql == "" {
		return nil
	}
	if _, err := db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// checkIn renders a CHECK constraint limiting column to the given choices
func checkIn[T ~string](column string, choices ...T) string {
	quoted := make([]string, len(choices))
	for i, c := range choices {
		quoted[i] = "'" + string(c) + "'"
	}
	return fmt.Sprintf("CHECK (%s IN (%s))", column, strings.Join(quoted, ", "))
}

var validationModeCheck = checkIn("mode", models.ValidationModeGT, models.ValidationModeGTPool)

var (
	AddImageIsPlaceholder = SchemaChange{
		Name: "add engine_image.is_placeholder",
		Up:   `ALTER TABLE engine_image ADD COLUMN is_placeholder boolean DEFAULT false NOT NULL`,
		Down: `ALTER TABLE engine_image DROP COLUMN is_placeholder`,
	}

	AddImageRealFrame = SchemaChange{
		Name: "add engine_image.real_frame",
		Up:   `ALTER TABLE engine_image ADD COLUMN real_frame integer DEFAULT 0 NOT NULL CHECK (real_frame >= 0)`,
		Down: `ALTER TABLE engine_image DROP COLUMN real_frame`,
	}

	CreateValidationParams = SchemaChange{
		Name: "create engine_validationparams",
		Up: fmt.Sprintf(`
			CREATE TABLE engine_validationparams (
				id serial PRIMARY KEY,
				mode varchar(32) NOT NULL %s,
				frame_selection_method varchar(32) NOT NULL %s,
				random_seed integer NULL,
				frame_count integer NULL,
				frame_share double precision NULL,
				frames_per_job_count integer NULL,
				frames_per_job_share double precision NULL,
				task_data_id integer NOT NULL UNIQUE
					REFERENCES engine_data(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
			)`,
			validationModeCheck,
			checkIn("frame_selection_method",
				models.FrameSelectionRandomUniform,
				models.FrameSelectionRandomPerJob,
				models.FrameSelectionManual,
			),
		),
		Down: `DROP TABLE engine_validationparams`,
	}

	CreateValidationLayout = SchemaChange{
		Name: "create engine_validationlayout",
		Up: fmt.Sprintf(`
			CREATE TABLE engine_validationlayout (
				id serial PRIMARY KEY,
				mode varchar(32) NOT NULL %s,
				frames_per_job_count integer NULL,
				frames text NOT NULL DEFAULT '',
				disabled_frames text NOT NULL DEFAULT '',
				task_data_id integer NOT NULL UNIQUE
					REFERENCES engine_data(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
			)`, validationModeCheck),
		Down: `DROP TABLE engine_validationlayout`,
	}

	CreateValidationFrame = SchemaChange{
		Name: "create engine_validationframe",
		Up: `
			CREATE TABLE engine_validationframe (
				id serial PRIMARY KEY,
				path varchar(1024) NOT NULL DEFAULT '',
				validation_params_id integer NOT NULL
					REFERENCES engine_validationparams(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
			);
			CREATE INDEX engine_validationframe_validation_params_id_idx
				ON engine_validationframe (validation_params_id)`,
		Down: `DROP TABLE engine_validationframe`,
	}

	CreateRelatedFileImages = SchemaChange{
		Name: "create engine_relatedfile_images",
		Up: `
			CREATE TABLE engine_relatedfile_images (
				id serial PRIMARY KEY,
				relatedfile_id integer NOT NULL
					REFERENCES engine_relatedfile(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
				image_id integer NOT NULL
					REFERENCES engine_image(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
				UNIQUE (relatedfile_id, image_id)
			);
			CREATE INDEX engine_relatedfile_images_relatedfile_id_idx ON engine_relatedfile_images (relatedfile_id);
			CREATE INDEX engine_relatedfile_images_image_id_idx ON engine_relatedfile_images (image_id)`,
		Down: `DROP TABLE engine_relatedfile_images`,
	}

	DropRelatedFilePrimaryImage = SchemaChange{
		Name: "drop engine_relatedfile.primary_image_id",
		Up:   `ALTER TABLE engine_relatedfile DROP COLUMN primary_image_id`,
		Down: `
			ALTER TABLE engine_relatedfile ADD COLUMN primary_image_id integer NULL
				REFERENCES engine_image(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED;
			CREATE INDEX engine_relatedfile_primary_image_id_idx ON engine_relatedfile (primary_image_id)`,
	}
)
