package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/app/storage"
	"github.com/vibast-solutions/ms-go-course/app/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrCourseAccessDenied = errors.New("you do not have access to the course")
	ErrNoFileSelected     = errors.New("no file selected")
	ErrInvalidFileType    = errors.New("file type not allowed")
)

var allowedVideoExtensions = map[string]struct{}{
	"mp4":  {},
	"avi":  {},
	"mov":  {},
	"wmv":  {},
	"flv":  {},
	"webm": {},
	"mkv":  {},
}

var defaultCourseContent = []entity.CourseContent{
	{
		VideoID:         1,
		Title:           "Introduction to the Philosophy of Fungi",
		Description:     "The philosophical foundations behind our approach to the fungi kingdom and its relation to human consciousness.",
		Duration:        "25:30",
		Module:          "Module 1",
		ReadingMaterial: "Complementary documents and articles on the topic.",
	},
	{
		VideoID:         2,
		Title:           "A History of Ritual Psychedelic Use",
		Description:     "A historical tour of the cultures that brought psychedelic mushrooms into their spiritual and ritual practice.",
		Duration:        "32:15",
		Module:          "Module 1",
		ReadingMaterial: "Complementary material on the history of psychedelics.",
	},
	{
		VideoID:         3,
		Title:           "Neuroscience and Altered Consciousness",
		Description:     "The neurological mechanisms involved in psychedelic experiences and their effect on perception.",
		Duration:        "28:45",
		Module:          "Module 2",
		ReadingMaterial: "Scientific studies on neuroscience and psychedelics.",
	},
	{
		VideoID:         4,
		Title:           "Ethics and Responsibility",
		Description:     "Ethical considerations for the responsible use of psychedelics in therapeutic and personal settings.",
		Duration:        "30:20",
		Module:          "Module 2",
		ReadingMaterial: "Ethical guidelines for responsible use.",
	},
	{
		VideoID:         5,
		Title:           "The Future of Psychedelic Therapy",
		Description:     "Where assisted psychedelic therapy is heading and how it may join mental health care.",
		Duration:        "35:10",
		Module:          "Module 3",
		ReadingMaterial: "Research on the future of psychedelic therapy.",
	},
}

type courseContentRepository interface {
	List(ctx context.Context) ([]*entity.CourseContent, error)
	FindByVideoID(ctx context.Context, videoID int) (*entity.CourseContent, error)
	Save(ctx context.Context, content *entity.CourseContent) error
	Count(ctx context.Context) (int, error)
}

type CourseService interface {
	ListContent(ctx context.Context, user *entity.User) ([]*entity.CourseContent, error)
	UpsertContent(ctx context.Context, req *types.UpsertContentRequest) (*entity.CourseContent, error)
	UploadVideo(ctx context.Context, videoID int, file *multipart.FileHeader) (*types.UploadVideoResponse, error)
	Seed(ctx context.Context) (int, error)
}

type courseService struct {
	contentRepo courseContentRepository
	store       storage.VideoStore
}

func NewCourseService(contentRepo courseContentRepository, store storage.VideoStore) CourseService {
	return &courseService{contentRepo: contentRepo, store: store}
}

func (s *courseService) ListContent(ctx context.Context, user *entity.User) ([]*entity.CourseContent, error) {
	if user == nil || !user.HasCourseAccess() {
		return nil, ErrCourseAccessDenied
	}
	return s.contentRepo.List(ctx)
}

func (s *courseService) UpsertContent(ctx context.Context, req *types.UpsertContentRequest) (*entity.CourseContent, error) {
	content, err := s.findOrNew(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		content.Title = *req.Title
	}
	if req.Description != nil {
		content.Description = *req.Description
	}
	if req.Duration != nil {
		content.Duration = *req.Duration
	}
	if req.Module != nil {
		content.Module = *req.Module
	}
	if req.VideoURL != nil {
		content.VideoURL = *req.VideoURL
	}
	if req.ReadingMaterial != nil {
		content.ReadingMaterial = *req.ReadingMaterial
	}

	if err = s.contentRepo.Save(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *courseService) UploadVideo(ctx context.Context, videoID int, file *multipart.FileHeader) (*types.UploadVideoResponse, error) {
	if file == nil || file.Filename == "" {
		return nil, ErrNoFileSelected
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if _, ok := allowedVideoExtensions[ext]; !ok {
		return nil, ErrInvalidFileType
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	filename := fmt.Sprintf("video_%d_%s.%s", videoID, uuid.New().String(), ext)
	url, err := s.store.Save(ctx, filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	content, err := s.findOrNew(ctx, videoID)
	if err != nil {
		return nil, err
	}
	content.VideoURL = url
	if err = s.contentRepo.Save(ctx, content); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"video_id": videoID,
		"filename": filename,
	}).Info("Course video stored")

	return &types.UploadVideoResponse{
		Message:  "video uploaded successfully",
		Filename: filename,
		VideoURL: url,
		Content:  types.NewContentView(content),
	}, nil
}

// Seed inserts the default course outline when no content exists yet and
// returns the number of rows written.
func (s *courseService) Seed(ctx context.Context) (int, error) {
	count, err := s.contentRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for i := range defaultCourseContent {
		content := defaultCourseContent[i]
		if err = s.contentRepo.Save(ctx, &content); err != nil {
			return i, err
		}
	}
	return len(defaultCourseContent), nil
}

func (s *courseService) findOrNew(ctx context.Context, videoID int) (*entity.CourseContent, error) {
	content, err := s.contentRepo.FindByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = &entity.CourseContent{
			VideoID: videoID,
			Title:   fmt.Sprintf("Video %d", videoID),
		}
	}
	return content, nil
}
