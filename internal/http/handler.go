package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/http/middleware"
	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

type Services struct {
	Reports       *service.ReportService
	Dispatches    *service.DispatchService
	Fleet         *service.FleetService
	Notifications *service.NotificationService
	Rewards       *service.RewardService
	Products      *service.ProductService
	Users         *service.UserService
}

type Handler struct {
	reports       *service.ReportService
	dispatches    *service.DispatchService
	fleet         *service.FleetService
	notifications *service.NotificationService
	rewards       *service.RewardService
	products      *service.ProductService
	users         *service.UserService
	log           zerolog.Logger
}

func NewHandler(services Services, log zerolog.Logger) *Handler {
	return &Handler{
		reports:       services.Reports,
		dispatches:    services.Dispatches,
		fleet:         services.Fleet,
		notifications: services.Notifications,
		rewards:       services.Rewards,
		products:      services.Products,
		users:         services.Users,
		log:           log,
	}
}

func (h *Handler) Register(router gin.IRouter, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	admin := middleware.RequireRoles(model.UserRoleAdmin)
	crew := middleware.RequireRoles(model.UserRoleAdmin, model.UserRoleCollector)

	reports := protected.Group("/waste-analysis")
	reports.POST("", h.submitReport)
	reports.GET("", h.listReports)
	reports.GET("/:id", h.getReport)

	dispatch := protected.Group("/dispatch")
	dispatch.POST("/auto", admin, h.createAutoDispatch)
	dispatch.POST("", admin, h.createManualDispatch)
	dispatch.GET("", crew, h.listDispatches)
	dispatch.GET("/export", admin, h.exportDispatches)
	dispatch.GET("/by-report/:reportId", h.getDispatchByReport)
	dispatch.GET("/:id", crew, h.getDispatch)
	dispatch.PATCH("/:id/status", crew, h.updateDispatchStatus)
	dispatch.GET("/:id/sheet", crew, h.collectionSheet)

	teams := protected.Group("/teams")
	teams.POST("", admin, h.createTeam)
	teams.GET("", h.listTeams)
	teams.GET("/:id", h.getTeam)
	teams.PATCH("/:id", admin, h.updateTeam)
	teams.DELETE("/:id", admin, h.deleteTeam)

	trucks := protected.Group("/truck")
	trucks.POST("", admin, h.createTruck)
	trucks.GET("", h.listTrucks)
	trucks.GET("/:id", h.getTruck)
	trucks.PATCH("/:id", admin, h.updateTruck)
	trucks.DELETE("/:id", admin, h.deleteTruck)

	products := protected.Group("/product")
	products.POST("", admin, h.createProduct)
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.PATCH("/:id", admin, h.updateProduct)
	products.DELETE("/:id", admin, h.deleteProduct)

	protected.POST("/redeem", h.redeem)
	protected.GET("/redeem", h.myOrders)

	users := protected.Group("/user")
	users.GET("/me", h.me)
	users.GET("/me/rewards", h.myRewards)
	users.GET("", admin, h.listUsers)
	users.POST("", admin, h.createUser)
	users.GET("/:id", h.getUser)
	users.GET("/:id/rewards", h.userRewards)
	users.POST("/:id/bonus", admin, h.grantBonus)
	users.GET("/:id/orders", h.userOrders)
	users.PATCH("/:id/role", admin, h.updateUserRole)
	users.GET("/:id/reconcile", admin, h.reconcileUser)

	notifications := protected.Group("/notifications")
	notifications.POST("", admin, h.createNotification)
	notifications.GET("", h.listNotifications)
	notifications.GET("/unread-count", h.unreadCount)
	notifications.POST("/read-all", h.markAllRead)
	notifications.PATCH("/:id/read", h.markRead)
	notifications.PATCH("/:id/archive", h.archiveNotification)
	notifications.DELETE("/:id", h.deleteNotification)
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func sendFile(c *gin.Context, contentType string, result *service.FileResult) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}

func currentPrincipal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "missing principal")
	}
	return p, ok
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrDuplicate),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInsufficientPoints):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNoCapacity):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrExternalService):
		h.log.Warn().Err(err).Str("path", c.FullPath()).Msg("upstream dependency failed")
		fail(c, http.StatusBadGateway, err.Error())
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func pageQuery(c *gin.Context) (model.Page, bool) {
	var page model.Page
	for key, dst := range map[string]*int{"page": &page.Page, "page_size": &page.PageSize} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid "+key)
			return model.Page{}, false
		}
		*dst = n
	}
	return page, true
}

func optionalQuery[T ~string](c *gin.Context, key string) *T {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}

func optionalUUIDQuery(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid "+key)
		return nil, false
	}
	return &id, true
}

func optionalDateQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	t, err := parseDate(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid "+key)
		return nil, false
	}
	return &t, true
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrValidation
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrValidation
}
