// Package handler 注册伙伴服务的 HTTP 接口
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solpet-labs/solpet/app/companion/internal/gameconfig"
	"github.com/solpet-labs/solpet/app/companion/internal/service"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/web"
)

// SyncHandler 经验同步与交易查询接口
type SyncHandler struct {
	sync    *service.SyncService
	configs *gameconfig.Store
	logger  logger.Logger
}

// NewSyncHandler 创建经验同步处理器
func NewSyncHandler(sync *service.SyncService, configs *gameconfig.Store, l logger.Logger) *SyncHandler {
	return &SyncHandler{
		sync:    sync,
		configs: configs,
		logger:  l.Named("handler.sync"),
	}
}

// Register 注册路由
func (h *SyncHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/calculate-experience", h.CalculateExperience)
		api.GET("/transactions", h.Transactions)
		api.GET("/transaction-details", h.TransactionDetails)
		api.GET("/game-config", h.GameConfig)
	}
}

// CalculateExperience 结算钱包的经验增量
func (h *SyncHandler) CalculateExperience(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		web.BadRequest(c, "Wallet address is required")
		return
	}

	dateOfBirth, ok := parseTimeParam(c, "dateOfBirth")
	if !ok {
		return
	}
	lastUpdated, ok := parseTimeParam(c, "lastUpdated")
	if !ok {
		return
	}

	result, err := h.sync.CalculateExperience(c.Request.Context(), wallet, dateOfBirth, lastUpdated)
	if err != nil {
		h.logger.Error("calculate experience failed", "wallet", wallet, "error", err)
		web.InternalError(c, "Failed to calculate experience")
		return
	}

	response := gin.H{
		"success":          true,
		"experiencePoints": result.ExperiencePoints,
		"canSync":          result.CanSync,
		"currentTime":      result.CalculatedAt.UTC().Format(time.RFC3339),
	}
	if result.CanSync {
		response["transactionCount"] = result.TransactionCount
	} else {
		response["hoursUntilNextSync"] = result.HoursUntilNextSync
		response["message"] = result.Message
	}
	if !lastUpdated.IsZero() {
		response["lastUpdateTime"] = lastUpdated.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, response)
}

// Transactions 查询钱包最近的交易签名
func (h *SyncHandler) Transactions(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		web.BadRequest(c, "Wallet address is required")
		return
	}

	infos, err := h.sync.RecentTransactions(c.Request.Context(), wallet)
	if err != nil {
		h.logger.Error("fetch transactions failed", "wallet", wallet, "error", err)
		web.InternalError(c, "Failed to fetch transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": infos})
}

// TransactionDetails 单笔交易的分类详情
func (h *SyncHandler) TransactionDetails(c *gin.Context) {
	signature := c.Query("signature")
	if signature == "" {
		web.BadRequest(c, "Transaction signature is required")
		return
	}
	wallet := c.Query("wallet")
	if wallet == "" {
		web.BadRequest(c, "Wallet address is required")
		return
	}

	result := h.sync.ClassifyTransaction(c.Request.Context(), wallet, signature)
	c.JSON(http.StatusOK, gin.H{
		"type":              result.Type,
		"summary":           result.Summary,
		"keyPoints":         result.KeyPoints,
		"additionalContext": result.AdditionalContext,
		"action":            result.Action,
	})
}

// GameConfig 当前生效的进度表与形象表
func (h *SyncHandler) GameConfig(c *gin.Context) {
	cfg := h.configs.Current()
	c.JSON(http.StatusOK, gin.H{
		"levelThresholds":     cfg.LevelThresholds,
		"evolutionThresholds": cfg.EvolutionThresholds,
		"companionImages":     cfg.CompanionImages,
	})
}

// parseTimeParam 解析 RFC3339 时间参数，缺失视为零值
func parseTimeParam(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		web.BadRequest(c, "Invalid "+key+" timestamp")
		return time.Time{}, false
	}
	return t.UTC(), true
}
