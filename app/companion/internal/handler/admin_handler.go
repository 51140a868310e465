package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/solpet-labs/solpet/app/companion/internal/service"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/web"
)

// AdminHandler 定时巡检接口，仅凭共享密钥访问
type AdminHandler struct {
	inactivity *service.InactivityService
	cronSecret string
	logger     logger.Logger
}

// NewAdminHandler 创建巡检处理器
func NewAdminHandler(inactivity *service.InactivityService, cronSecret string, l logger.Logger) *AdminHandler {
	return &AdminHandler{
		inactivity: inactivity,
		cronSecret: cronSecret,
		logger:     l.Named("handler.admin"),
	}
}

// Register 注册路由
func (h *AdminHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/update-inactive-companions", h.SweepInactive)
		api.GET("/cron/update-companions", h.SweepInactive)
	}
}

// SweepInactive 巡检集合内长期未同步的伙伴
func (h *AdminHandler) SweepInactive(c *gin.Context) {
	if !h.authorized(c) {
		web.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	results, err := h.inactivity.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("inactivity sweep failed", "error", err)
		web.InternalError(c, "Failed to update inactive companions")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

func (h *AdminHandler) authorized(c *gin.Context) bool {
	if h.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}
