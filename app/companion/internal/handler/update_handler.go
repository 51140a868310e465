package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/solpet-labs/solpet/app/companion/internal/model"
	"github.com/solpet-labs/solpet/app/companion/internal/service"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/web"
)

// UpdateHandler 伙伴元数据更新流程接口
type UpdateHandler struct {
	updates *service.UpdateService
	logger  logger.Logger
}

// NewUpdateHandler 创建更新流程处理器
func NewUpdateHandler(updates *service.UpdateService, l logger.Logger) *UpdateHandler {
	return &UpdateHandler{
		updates: updates,
		logger:  l.Named("handler.update"),
	}
}

// Register 注册路由
func (h *UpdateHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/update-companion", h.PrepareFunding)
		api.POST("/update-companion", h.BuildUpdate)
		api.PUT("/update-companion", h.VerifyUpdate)
		api.POST("/check-funding-status", h.CheckFunding)
		api.POST("/check-upload-status", h.CheckUpload)
		api.POST("/submit-transaction", h.SubmitTransaction)
	}
}

// PrepareFunding 准备资助交易，返回会话钱包密钥材料
func (h *UpdateHandler) PrepareFunding(c *gin.Context) {
	wallet := c.Query("walletAddress")
	if wallet == "" {
		web.BadRequest(c, "Wallet address is required")
		return
	}

	result, err := h.updates.PrepareFunding(c.Request.Context(), wallet)
	if err != nil {
		h.logger.Error("prepare funding failed", "wallet", wallet, "error", err)
		web.InternalError(c, "Failed to prepare funding transaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"fundingTransaction": result.FundingTransaction,
		"estimatedCost":      result.EstimatedCost,
		"serverWallet":       result.ServerWallet,
		"serverSecretKey":    result.ServerSecretKey,
	})
}

// BuildUpdateRequest 构建更新交易的请求体
type BuildUpdateRequest struct {
	AssetAddress     string           `json:"assetAddress"`
	PayerPublicKey   string           `json:"payerPublicKey"`
	Companion        *model.Companion `json:"companionData"`
	ServerSecretKey  string           `json:"serverSecretKey"`
	FundingSignature string           `json:"fundingSignature"`
}

// BuildUpdate 上传新元数据并构建链上更新交易
func (h *UpdateHandler) BuildUpdate(c *gin.Context) {
	var req BuildUpdateRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	switch {
	case req.AssetAddress == "":
		web.BadRequest(c, "Asset address is required")
		return
	case req.PayerPublicKey == "":
		web.BadRequest(c, "Payer public key is required")
		return
	case req.Companion == nil:
		web.BadRequest(c, "Companion data is required")
		return
	case req.ServerSecretKey == "":
		web.BadRequest(c, "Server secret key is required")
		return
	case req.FundingSignature == "":
		web.BadRequest(c, "Funding signature is required")
		return
	}

	result, err := h.updates.BuildUpdate(c.Request.Context(), &service.BuildUpdateRequest{
		AssetAddress:     req.AssetAddress,
		Companion:        req.Companion,
		PayerPublicKey:   req.PayerPublicKey,
		ServerSecretKey:  req.ServerSecretKey,
		FundingSignature: req.FundingSignature,
	})
	if err != nil {
		h.logger.Error("build update failed",
			"asset", req.AssetAddress,
			"payer", req.PayerPublicKey,
			"error", err,
		)
		if errors.Is(err, service.ErrFundingConsumed) || errors.Is(err, service.ErrFundingNotVisible) {
			web.BadRequest(c, err.Error())
			return
		}
		web.InternalError(c, "Failed to build update transaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"transaction": result.Transaction,
		"metadataUri": result.MetadataURI,
	})
}

// VerifyUpdateRequest 更新结果校验请求体
type VerifyUpdateRequest struct {
	Signature    string `json:"signature"`
	AssetAddress string `json:"assetAddress"`
}

// VerifyUpdate 校验更新交易已上链
func (h *UpdateHandler) VerifyUpdate(c *gin.Context) {
	var req VerifyUpdateRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if req.Signature == "" {
		web.BadRequest(c, "Transaction signature is required")
		return
	}

	if err := h.updates.VerifyUpdate(c.Request.Context(), req.Signature, req.AssetAddress); err != nil {
		web.FailWithDetails(c, http.StatusOK, "Transaction verification failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"assetAddress": req.AssetAddress,
	})
}

// CheckFundingRequest 资助状态查询请求体，serverWallet 仅在签名尚未绑定会话时需要
type CheckFundingRequest struct {
	FundingSignature string `json:"fundingSignature"`
	ServerWallet     string `json:"serverWallet"`
}

// CheckFunding 查询资助交易与会话钱包余额
func (h *UpdateHandler) CheckFunding(c *gin.Context) {
	var req CheckFundingRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if req.FundingSignature == "" {
		web.BadRequest(c, "Funding signature is required")
		return
	}

	status, err := h.updates.CheckFunding(c.Request.Context(), req.FundingSignature, req.ServerWallet)
	if err != nil {
		h.logger.Error("check funding failed", "signature", req.FundingSignature, "error", err)
		web.InternalError(c, "Failed to check funding status")
		return
	}
	if !status.Confirmed {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"funded":  false,
			"message": status.Message,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"funded":  status.Funded,
		"balance": status.Balance,
	})
}

// CheckUploadRequest 元数据可达性查询请求体
type CheckUploadRequest struct {
	MetadataURI string `json:"metadataUri"`
}

// CheckUpload 检查元数据是否已可通过网关读取
func (h *UpdateHandler) CheckUpload(c *gin.Context) {
	var req CheckUploadRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if req.MetadataURI == "" {
		web.BadRequest(c, "Metadata URI is required")
		return
	}

	status := h.updates.CheckUpload(c.Request.Context(), req.MetadataURI)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"confirmed": status.Confirmed,
		"message":   status.Message,
	})
}

// SubmitTransactionRequest 交易提交请求体
type SubmitTransactionRequest struct {
	SignedTransaction string `json:"signedTransaction"`
	AssetAddress      string `json:"assetAddress"`
}

// SubmitTransaction 代客户端提交已签名交易
func (h *UpdateHandler) SubmitTransaction(c *gin.Context) {
	var req SubmitTransactionRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if req.SignedTransaction == "" {
		web.BadRequest(c, "Signed transaction is required")
		return
	}

	result, err := h.updates.SubmitTransaction(c.Request.Context(), req.SignedTransaction)
	if err != nil {
		h.logger.Error("submit transaction failed", "asset", req.AssetAddress, "error", err)
		web.InternalError(c, "Failed to submit transaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"signature":    result.Signature,
		"assetAddress": req.AssetAddress,
	})
}
