package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solpet-labs/solpet/app/companion/internal/service"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/web"
)

// CompanionHandler 伙伴资产查询接口
type CompanionHandler struct {
	companions *service.CompanionService
	logger     logger.Logger
}

// NewCompanionHandler 创建伙伴查询处理器
func NewCompanionHandler(companions *service.CompanionService, l logger.Logger) *CompanionHandler {
	return &CompanionHandler{
		companions: companions,
		logger:     l.Named("handler.companion"),
	}
}

// Register 注册路由
func (h *CompanionHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/check-companion", h.CheckCompanion)
		api.GET("/companion", h.GetCompanion)
	}
}

// CheckCompanion 检查钱包是否持有本集合的伙伴
func (h *CompanionHandler) CheckCompanion(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		web.BadRequest(c, "Wallet address is required")
		return
	}

	result, err := h.companions.CheckOwnership(c.Request.Context(), wallet)
	if err != nil {
		h.logger.Error("check companion failed", "wallet", wallet, "error", err)
		web.InternalError(c, "Failed to check companion ownership")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hasCompanion":   result.HasCompanion,
		"companionCount": result.CompanionCount,
	})
}

// GetCompanion 取单个伙伴的链上记录与元数据
func (h *CompanionHandler) GetCompanion(c *gin.Context) {
	asset := c.Query("asset")
	if asset == "" {
		web.BadRequest(c, "Asset address is required")
		return
	}

	result, err := h.companions.FetchCompanion(c.Request.Context(), asset)
	if err != nil {
		h.logger.Error("fetch companion failed", "asset", asset, "error", err)
		web.NotFound(c, "Companion not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assetAddress": result.Address,
		"name":         result.Name,
		"uri":          result.URI,
		"owner":        result.Owner,
		"companion":    result.Companion,
	})
}
