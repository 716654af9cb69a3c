package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/controller"
	"github.com/vibast-solutions/ms-go-course/app/gateway"
	"github.com/vibast-solutions/ms-go-course/app/mail"
	"github.com/vibast-solutions/ms-go-course/app/middleware"
	"github.com/vibast-solutions/ms-go-course/app/repository"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/storage"
	"github.com/vibast-solutions/ms-go-course/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server exposing auth, course, payment and admin endpoints.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type controllers struct {
	auth    *controller.AuthController
	course  *controller.CourseController
	payment *controller.PaymentController
	admin   *controller.AdminController
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, db, err := loadRuntime()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = autoMigrate(ctx, cfg, db); err != nil {
		logrus.WithError(err).Fatal("Failed to apply migrations")
	}

	videoStore, err := storage.NewVideoStore(ctx, cfg.Storage)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize video storage")
	}
	if cfg.Payment.AccessToken == "" {
		logrus.Warn("MP_ACCESS_TOKEN is not set, payment provider calls will fail")
	}
	if !cfg.Mail.Enabled() {
		logrus.Warn("SendGrid is not configured, emails will only be logged")
	}

	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewCourseContentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	tokens := service.NewTokenService(cfg.JWT, userRepo)
	mailer := mail.NewMailer(mail.NewSender(cfg.Mail), cfg)
	engine := service.NewReconciliationEngine(db)
	gw := gateway.NewMercadoPagoClient(cfg.Payment)

	ctrls := controllers{
		auth:    controller.NewAuthController(service.NewUserAuthService(userRepo, tokens, mailer, cfg)),
		course:  controller.NewCourseController(service.NewCourseService(contentRepo, videoStore)),
		payment: controller.NewPaymentController(service.NewPaymentService(gw, engine, paymentRepo, cfg)),
		admin:   controller.NewAdminController(service.NewAdminService(userRepo, cfg)),
	}

	e := newHTTPServer(middleware.NewAuthMiddleware(tokens), ctrls, cfg.Storage.MaxUploadSize)
	if local, ok := videoStore.(*storage.LocalVideoStore); ok {
		e.Static(storage.LocalPublicPath, local.Dir())
	}

	startHTTPServer(ctx, cfg, e)
}

func newHTTPServer(authMiddleware *middleware.AuthMiddleware, ctrls controllers, maxUploadSize string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			if userID, ok := c.Get(middleware.ContextKeyUserID).(uint64); ok {
				fields["user_id"] = userID
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", controller.Health)

	auth := e.Group("/auth")
	auth.POST("/register", ctrls.auth.Register)
	auth.POST("/login", ctrls.auth.Login)
	auth.POST("/confirm-email", ctrls.auth.ConfirmEmail)
	auth.POST("/resend-confirmation", ctrls.auth.ResendConfirmation)
	auth.POST("/forgot-password", ctrls.auth.ForgotPassword)
	auth.POST("/reset-password", ctrls.auth.ResetPassword)
	auth.GET("/profile", ctrls.auth.Profile, authMiddleware.RequireAuth)

	course := e.Group("/course", authMiddleware.RequireAuth)
	course.GET("/check-access", ctrls.course.CheckAccess)
	course.GET("/content", ctrls.course.Content, authMiddleware.RequireCourseAccess)
	course.PUT("/content/:video_id", ctrls.course.UpsertContent, authMiddleware.RequireAdmin)
	course.POST("/upload-video/:video_id", ctrls.course.UploadVideo, authMiddleware.RequireAdmin, echomiddleware.BodyLimit(maxUploadSize))

	payments := e.Group("/payments")
	payments.GET("/config", ctrls.payment.Config)
	payments.POST("/webhook", ctrls.payment.Webhook)
	payments.POST("/create-preference", ctrls.payment.CreatePreference, authMiddleware.RequireAuth)
	payments.GET("/status/:id", ctrls.payment.Status, authMiddleware.RequireAuth)

	admin := e.Group("/admin", authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
	admin.GET("/users", ctrls.admin.ListUsers)
	admin.POST("/activate-user", ctrls.admin.ActivateUser)
	admin.POST("/deactivate-user", ctrls.admin.DeactivateUser)
	admin.POST("/grant-access-user", ctrls.admin.GrantAccess)
	admin.POST("/revoke-access-user", ctrls.admin.RevokeAccess)

	return e
}

func startHTTPServer(ctx context.Context, cfg *config.Config, e *echo.Echo) {
	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)

	go func() {
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
}
