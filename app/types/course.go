package types

import (
	"errors"
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"

	"github.com/labstack/echo/v4"
)

// UpsertContentRequest carries a partial update; nil fields keep their value.
type UpsertContentRequest struct {
	VideoID         int     `json:"-"`
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Duration        *string `json:"duration"`
	Module          *string `json:"module"`
	VideoURL        *string `json:"video_url"`
	ReadingMaterial *string `json:"reading_material"`
}

func NewUpsertContentRequestFromContext(ctx echo.Context) (*UpsertContentRequest, error) {
	videoID, err := VideoIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body UpsertContentRequest
	if err = ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.VideoID = videoID

	return &body, nil
}

func (r *UpsertContentRequest) Validate() error {
	if r.VideoID <= 0 {
		return errors.New("video_id must be a positive integer")
	}
	if r.Title != nil && *r.Title == "" {
		return errors.New("title cannot be empty")
	}

	return nil
}

// VideoIDFromContext reads the :video_id path parameter.
func VideoIDFromContext(ctx echo.Context) (int, error) {
	videoID, err := strconv.Atoi(ctx.Param("video_id"))
	if err != nil || videoID <= 0 {
		return 0, errors.New("video_id must be a positive integer")
	}
	return videoID, nil
}

type ContentView struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Duration        string    `json:"duration"`
	Module          string    `json:"module"`
	VideoURL        string    `json:"video_url"`
	ReadingMaterial string    `json:"reading_material"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewContentView(content *entity.CourseContent) *ContentView {
	if content == nil {
		return nil
	}
	return &ContentView{
		ID:              content.VideoID,
		Title:           content.Title,
		Description:     content.Description,
		Duration:        content.Duration,
		Module:          content.Module,
		VideoURL:        content.VideoURL,
		ReadingMaterial: content.ReadingMaterial,
		UpdatedAt:       content.UpdatedAt,
	}
}

type CheckAccessResponse struct {
	HasAccess bool      `json:"has_access"`
	User      *UserView `json:"user"`
}

type CourseContentResponse struct {
	Videos []*ContentView `json:"videos"`
	Total  int            `json:"total"`
}

type ContentResponse struct {
	Message string       `json:"message"`
	Content *ContentView `json:"content"`
}

type UploadVideoResponse struct {
	Message  string       `json:"message"`
	Filename string       `json:"filename"`
	VideoURL string       `json:"video_url"`
	Content  *ContentView `json:"content"`
}
