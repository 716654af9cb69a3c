package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-course/app/dto"
	"github.com/vibast-solutions/ms-go-course/app/middleware"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// VideoFormField is the multipart field carrying an uploaded video.
const VideoFormField = "video"

type CourseController struct {
	courseService service.CourseService
}

func NewCourseController(courseService service.CourseService) *CourseController {
	return &CourseController{courseService: courseService}
}

func (c *CourseController) CheckAccess(ctx echo.Context) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	return ctx.JSON(http.StatusOK, &types.CheckAccessResponse{
		HasAccess: user.HasCourseAccess(),
		User:      types.NewUserView(user),
	})
}

func (c *CourseController) Content(ctx echo.Context) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	contents, err := c.courseService.ListContent(ctx.Request().Context(), user)
	if err != nil {
		if errors.Is(err, service.ErrCourseAccessDenied) {
			logrus.WithField("user_id", user.ID).Warn("Course content denied")
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("List course content failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	videos := make([]*types.ContentView, 0, len(contents))
	for _, content := range contents {
		videos = append(videos, types.NewContentView(content))
	}
	return ctx.JSON(http.StatusOK, &types.CourseContentResponse{
		Videos: videos,
		Total:  len(videos),
	})
}

func (c *CourseController) UpsertContent(ctx echo.Context) error {
	req, err := types.NewUpsertContentRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind content request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("video_id", req.VideoID).Debug("Content validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	content, err := c.courseService.UpsertContent(ctx.Request().Context(), req)
	if err != nil {
		logrus.WithError(err).WithField("video_id", req.VideoID).Error("Update course content failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("video_id", req.VideoID).Info("Course content updated")
	return ctx.JSON(http.StatusOK, &types.ContentResponse{
		Message: "content updated successfully",
		Content: types.NewContentView(content),
	})
}

func (c *CourseController) UploadVideo(ctx echo.Context) error {
	videoID, err := types.VideoIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	file, err := ctx.FormFile(VideoFormField)
	if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		logrus.WithField("video_id", videoID).Warn("Upload rejected: body exceeds the size limit")
		return ctx.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "video exceeds the maximum upload size"})
	}
	if err != nil {
		logrus.WithError(err).WithField("video_id", videoID).Debug("Upload without video file")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no video file provided"})
	}

	res, err := c.courseService.UploadVideo(ctx.Request().Context(), videoID, file)
	if err != nil {
		if errors.Is(err, service.ErrNoFileSelected) || errors.Is(err, service.ErrInvalidFileType) {
			logrus.WithField("video_id", videoID).Warn("Upload rejected: " + err.Error())
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("video_id", videoID).Error("Upload video failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, res)
}
