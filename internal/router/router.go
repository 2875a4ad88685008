package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/handler"
	"github.com/noah-isme/lecture-diary-api/internal/middleware"
	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	"github.com/noah-isme/lecture-diary-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lecture-diary-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lecture-diary-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth       *handler.AuthHandler
	Teachers   *handler.TeacherHandler
	Curriculum *handler.CurriculumHandler
	Holidays   *handler.HolidayHandler
	Lectures   *handler.LectureHandler
	LeaveTypes *handler.LeaveTypeHandler
	Leaves     *handler.LeaveHandler
	Balances   *handler.LeaveBalanceHandler
	Reports    *handler.ReportHandler
	Metrics    *handler.MetricsHandler
	Audit      *handler.AuditHandler
}

// Options carries the cross-cutting dependencies of the route tree.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Auth           *service.AuthService
	Audit          middleware.AuditRecorder
	Metrics        *service.MetricsService
}

// New builds the gin engine with global middleware and every route registered.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)

	// ===== Public =====
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.GET("/reports/download", h.Reports.Download)

	// ===== Authenticated =====
	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Auth))
	admin := middleware.RequireRoles(models.RoleAdmin)
	catalogAudit := func(resource string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, models.AuditActionCatalogChange, resource)
	}

	auth := secured.Group("/auth")
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.Me)
	auth.POST("/change-password", h.Auth.ChangePassword)

	secured.GET("/metrics/snapshot", admin, h.Metrics.Snapshot)
	secured.GET("/audit-logs", admin, h.Audit.Trail)

	teachers := secured.Group("/teachers")
	teachers.GET("", admin, h.Teachers.List)
	teachers.GET("/:id", middleware.RequireRolesOrSelf("id", models.RoleAdmin), h.Teachers.Get)
	teachers.POST("", admin, h.Teachers.Create)
	teachers.PUT("/:id", admin, h.Teachers.Update)
	teachers.PUT("/:id/courses", admin, h.Teachers.SetCourses)
	teachers.DELETE("/:id", admin, h.Teachers.Delete)

	courses := secured.Group("/courses")
	courses.GET("", h.Curriculum.ListCourses)
	courses.GET("/:id", h.Curriculum.GetCourse)
	courses.POST("", admin, catalogAudit("course"), h.Curriculum.CreateCourse)
	courses.PUT("/:id", admin, catalogAudit("course"), h.Curriculum.UpdateCourse)
	courses.DELETE("/:id", admin, catalogAudit("course"), h.Curriculum.DeleteCourse)
	courses.GET("/:id/subjects", h.Curriculum.ListSubjects)
	courses.POST("/:id/subjects", admin, catalogAudit("subject"), h.Curriculum.CreateSubject)

	subjects := secured.Group("/subjects")
	subjects.GET("/:id", h.Curriculum.GetSubject)
	subjects.PUT("/:id", admin, catalogAudit("subject"), h.Curriculum.UpdateSubject)
	subjects.DELETE("/:id", admin, catalogAudit("subject"), h.Curriculum.DeleteSubject)
	subjects.GET("/:id/topics", h.Curriculum.ListTopics)
	subjects.POST("/:id/topics", admin, catalogAudit("topic"), h.Curriculum.CreateTopic)

	topics := secured.Group("/topics")
	topics.GET("/:id", h.Curriculum.GetTopic)
	topics.PUT("/:id", admin, catalogAudit("topic"), h.Curriculum.UpdateTopic)
	topics.DELETE("/:id", admin, catalogAudit("topic"), h.Curriculum.DeleteTopic)

	holidays := secured.Group("/holidays")
	holidays.GET("", h.Holidays.List)
	holidays.POST("", admin, catalogAudit("holiday"), h.Holidays.Create)
	holidays.PUT("/:id", admin, catalogAudit("holiday"), h.Holidays.Update)
	holidays.DELETE("/:id", admin, catalogAudit("holiday"), h.Holidays.Delete)

	leaveTypes := secured.Group("/leave-types")
	leaveTypes.GET("", h.LeaveTypes.List)
	leaveTypes.GET("/:id", h.LeaveTypes.Get)
	leaveTypes.POST("", admin, catalogAudit("leave_type"), h.LeaveTypes.Create)
	leaveTypes.PUT("/:id", admin, catalogAudit("leave_type"), h.LeaveTypes.Update)

	lectures := secured.Group("/lectures")
	lectures.GET("", h.Lectures.List)
	lectures.GET("/:id", h.Lectures.Get)
	lectures.POST("", h.Lectures.Create)
	lectures.PUT("/:id", h.Lectures.Update)
	lectures.DELETE("/:id", h.Lectures.Delete)

	leaves := secured.Group("/leaves")
	leaves.GET("", h.Leaves.List)
	leaves.GET("/:id", h.Leaves.Get)
	leaves.POST("", h.Leaves.Apply)
	leaves.PATCH("/:id/status", admin, h.Leaves.UpdateStatus)
	leaves.POST("/:id/escalate", admin, h.Leaves.Escalate)

	balances := secured.Group("/leave-balances")
	balances.GET("", h.Balances.List)
	balances.GET("/history", h.Balances.History)
	balances.PUT("", admin, h.Balances.SetOpening)
	balances.POST("/adjust", admin, h.Balances.Adjust)

	reports := secured.Group("/reports")
	reports.POST("/leaves", middleware.Audit(opts.Audit, models.AuditActionReportExport, "leave_register"), h.Reports.LeaveRegister)
	reports.POST("/diary", middleware.Audit(opts.Audit, models.AuditActionReportExport, "lecture_diary"), h.Reports.Diary)

	return r
}
