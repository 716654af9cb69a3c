package controller

import (
	"net/http"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/dto"

	"github.com/labstack/echo/v4"
)

const serviceName = "course-platform"

func Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
