package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/app/repository"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/types"

	"github.com/DATA-DOG/go-sqlmock"
)

var contentColumns = []string{
	"id", "video_id", "title", "description", "duration", "module", "video_url", "reading_material", "updated_at",
}

const (
	listContentQuery  = `(?s)SELECT id, video_id, title, .+ FROM course_content ORDER BY video_id`
	findContentQuery  = `(?s)SELECT id, video_id, title, .+ FROM course_content WHERE video_id = \?`
	saveContentQuery  = `(?s)INSERT INTO course_content .+ ON DUPLICATE KEY UPDATE`
	countContentQuery = `SELECT COUNT\(\*\) FROM course_content`
)

type storedVideo struct {
	name        string
	body        string
	contentType string
}

type fakeVideoStore struct {
	saved []storedVideo
	err   error
}

func (s *fakeVideoStore) Save(_ context.Context, name string, body io.Reader, _ int64, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.saved = append(s.saved, storedVideo{name: name, body: string(data), contentType: contentType})
	return "/uploads/videos/" + name, nil
}

func newCourseService(t *testing.T) (service.CourseService, *fakeVideoStore, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, cleanup := newMockDB(t)
	store := &fakeVideoStore{}
	return service.NewCourseService(repository.NewCourseContentRepository(db), store), store, mock, cleanup
}

func newFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("video", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err = part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err = writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("failed to read form: %v", err)
	}
	return form.File["video"][0]
}

func strPtr(s string) *string {
	return &s
}

func TestCourseService_ListContentRequiresAccess(t *testing.T) {
	svc, _, mock, cleanup := newCourseService(t)
	defer cleanup()

	noAccess := newUser(1, "user@example.com")
	if _, err := svc.ListContent(context.Background(), noAccess); !errors.Is(err, service.ErrCourseAccessDenied) {
		t.Fatalf("expected ErrCourseAccessDenied, got %v", err)
	}

	inactive := newUser(2, "paid@example.com")
	inactive.HasAccess = true
	inactive.Active = false
	if _, err := svc.ListContent(context.Background(), inactive); !errors.Is(err, service.ErrCourseAccessDenied) {
		t.Fatalf("expected ErrCourseAccessDenied for inactive user, got %v", err)
	}

	admin := newUser(3, "admin@example.com")
	admin.Role = entity.RoleAdmin
	mock.ExpectQuery(listContentQuery).WillReturnRows(
		sqlmock.NewRows(contentColumns).
			AddRow(1, 1, "Intro", "", "10:00", "Module 1", "", "", fixedNow).
			AddRow(2, 2, "Second", "", "", "Module 1", "/uploads/videos/v2.mp4", "", fixedNow),
	)

	contents, err := svc.ListContent(context.Background(), admin)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(contents) != 2 || contents[1].VideoURL != "/uploads/videos/v2.mp4" {
		t.Fatalf("unexpected contents: %+v", contents)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCourseService_UpsertContentKeepsOmittedFields(t *testing.T) {
	svc, _, mock, cleanup := newCourseService(t)
	defer cleanup()

	mock.ExpectQuery(findContentQuery).WithArgs(3).WillReturnRows(
		sqlmock.NewRows(contentColumns).
			AddRow(3, 3, "Old title", "Old description", "12:00", "Module 2", "/uploads/videos/old.mp4", "Notes", fixedNow),
	)
	mock.ExpectExec(saveContentQuery).
		WithArgs(3, "New title", "Old description", "12:00", "Module 2", "/uploads/videos/old.mp4", "Notes", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	content, err := svc.UpsertContent(context.Background(), &types.UpsertContentRequest{VideoID: 3, Title: strPtr("New title")})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if content.Title != "New title" || content.Description != "Old description" {
		t.Fatalf("unexpected content: %+v", content)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCourseService_UpsertContentCreatesMissingRow(t *testing.T) {
	svc, _, mock, cleanup := newCourseService(t)
	defer cleanup()

	mock.ExpectQuery(findContentQuery).WithArgs(8).WillReturnRows(sqlmock.NewRows(contentColumns))
	mock.ExpectExec(saveContentQuery).
		WithArgs(8, "Video 8", "Bonus", "", "", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	content, err := svc.UpsertContent(context.Background(), &types.UpsertContentRequest{VideoID: 8, Description: strPtr("Bonus")})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if content.VideoID != 8 || content.Title != "Video 8" {
		t.Fatalf("unexpected content: %+v", content)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCourseService_UploadVideo(t *testing.T) {
	svc, store, mock, cleanup := newCourseService(t)
	defer cleanup()

	mock.ExpectQuery(findContentQuery).WithArgs(2).WillReturnRows(
		sqlmock.NewRows(contentColumns).AddRow(2, 2, "Second", "", "", "", "", "", fixedNow),
	)
	mock.ExpectExec(saveContentQuery).WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := svc.UploadVideo(context.Background(), 2, newFileHeader(t, "Lesson.MP4", "video-bytes"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if !strings.HasPrefix(res.Filename, "video_2_") || !strings.HasSuffix(res.Filename, ".mp4") {
		t.Fatalf("unexpected filename: %s", res.Filename)
	}
	if res.VideoURL != "/uploads/videos/"+res.Filename || res.Content.VideoURL != res.VideoURL {
		t.Fatalf("unexpected response: %+v", res)
	}
	if len(store.saved) != 1 || store.saved[0].body != "video-bytes" {
		t.Fatalf("unexpected stored videos: %+v", store.saved)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCourseService_UploadVideoRejections(t *testing.T) {
	svc, store, mock, cleanup := newCourseService(t)
	defer cleanup()

	if _, err := svc.UploadVideo(context.Background(), 1, nil); !errors.Is(err, service.ErrNoFileSelected) {
		t.Fatalf("expected ErrNoFileSelected, got %v", err)
	}
	if _, err := svc.UploadVideo(context.Background(), 1, newFileHeader(t, "notes.pdf", "pdf")); !errors.Is(err, service.ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
	if _, err := svc.UploadVideo(context.Background(), 1, newFileHeader(t, "noext", "data")); !errors.Is(err, service.ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType for missing extension, got %v", err)
	}

	store.err = errors.New("bucket unavailable")
	if _, err := svc.UploadVideo(context.Background(), 1, newFileHeader(t, "clip.webm", "data")); err == nil {
		t.Fatalf("expected store error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no database access: %v", err)
	}
}

func TestCourseService_Seed(t *testing.T) {
	svc, _, mock, cleanup := newCourseService(t)
	defer cleanup()

	mock.ExpectQuery(countContentQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for i := 1; i <= 5; i++ {
		mock.ExpectExec(saveContentQuery).
			WithArgs(i, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(int64(i), 1))
	}

	written, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if written != 5 {
		t.Fatalf("expected 5 rows, got %d", written)
	}

	mock.ExpectQuery(countContentQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	written, err = svc.Seed(context.Background())
	if err != nil || written != 0 {
		t.Fatalf("expected seed to skip populated table, got %d, %v", written, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
