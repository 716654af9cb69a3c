package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
)

const courseContentColumns = `id, video_id, title, COALESCE(description, ''), COALESCE(duration, ''), COALESCE(module, ''),
		       COALESCE(video_url, ''), COALESCE(reading_material, ''), updated_at`

type CourseContentRepository struct {
	db DBTX
}

func NewCourseContentRepository(db DBTX) *CourseContentRepository {
	return &CourseContentRepository{db: db}
}

func (r *CourseContentRepository) List(ctx context.Context) ([]*entity.CourseContent, error) {
	query := `SELECT ` + courseContentColumns + `
		FROM course_content ORDER BY video_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contents := make([]*entity.CourseContent, 0)
	for rows.Next() {
		content, err := scanCourseContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

func (r *CourseContentRepository) FindByVideoID(ctx context.Context, videoID int) (*entity.CourseContent, error) {
	query := `SELECT ` + courseContentColumns + `
		FROM course_content WHERE video_id = ?`
	content, err := scanCourseContent(r.db.QueryRowContext(ctx, query, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

// Save inserts the content row or replaces the fields of the row with the same video_id.
func (r *CourseContentRepository) Save(ctx context.Context, content *entity.CourseContent) error {
	query := `
		INSERT INTO course_content (video_id, title, description, duration, module, video_url, reading_material, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title),
			description = VALUES(description),
			duration = VALUES(duration),
			module = VALUES(module),
			video_url = VALUES(video_url),
			reading_material = VALUES(reading_material),
			updated_at = VALUES(updated_at)
	`
	content.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		content.VideoID,
		content.Title,
		content.Description,
		content.Duration,
		content.Module,
		content.VideoURL,
		content.ReadingMaterial,
		content.UpdatedAt,
	)
	return err
}

func (r *CourseContentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_content`).Scan(&count)
	return count, err
}

func scanCourseContent(row rowScanner) (*entity.CourseContent, error) {
	content := &entity.CourseContent{}
	err := row.Scan(
		&content.ID,
		&content.VideoID,
		&content.Title,
		&content.Description,
		&content.Duration,
		&content.Module,
		&content.VideoURL,
		&content.ReadingMaterial,
		&content.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return content, nil
}
