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

// MintHandler 伙伴铸造准备接口
// 铸造交易由客户端钱包签名提交，服务端只负责资助与元数据
type MintHandler struct {
	mints  *service.MintService
	logger logger.Logger
}

// NewMintHandler 创建铸造准备处理器
func NewMintHandler(mints *service.MintService, l logger.Logger) *MintHandler {
	return &MintHandler{
		mints:  mints,
		logger: l.Named("handler.mint"),
	}
}

// Register 注册路由
func (h *MintHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/mint-companion", h.PrepareFunding)
		api.POST("/mint-companion", h.UploadMetadata)
		api.PUT("/mint-companion", h.VerifyMint)
	}
}

// PrepareFunding 准备铸造流程的资助交易
func (h *MintHandler) PrepareFunding(c *gin.Context) {
	wallet := c.Query("walletAddress")
	if wallet == "" {
		web.BadRequest(c, "Wallet address is required")
		return
	}

	result, err := h.mints.PrepareFunding(c.Request.Context(), wallet)
	if err != nil {
		h.logger.Error("prepare mint funding failed", "wallet", wallet, "error", err)
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

// MintUploadRequest 铸造元数据上传请求体
type MintUploadRequest struct {
	WalletAddress    string           `json:"walletAddress"`
	Companion        *model.Companion `json:"companionData"`
	ServerSecretKey  string           `json:"serverSecretKey"`
	FundingSignature string           `json:"fundingSignature"`
}

// UploadMetadata 确认资助后上传铸造元数据
func (h *MintHandler) UploadMetadata(c *gin.Context) {
	var req MintUploadRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	switch {
	case req.WalletAddress == "":
		web.BadRequest(c, "Wallet address is required")
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

	uri, err := h.mints.UploadMetadata(c.Request.Context(), &service.MintUploadRequest{
		WalletAddress:    req.WalletAddress,
		Companion:        req.Companion,
		ServerSecretKey:  req.ServerSecretKey,
		FundingSignature: req.FundingSignature,
	})
	if err != nil {
		h.logger.Error("upload mint metadata failed", "wallet", req.WalletAddress, "error", err)
		if errors.Is(err, service.ErrFundingConsumed) || errors.Is(err, service.ErrFundingNotVisible) {
			web.BadRequest(c, err.Error())
			return
		}
		web.InternalError(c, "Failed to upload metadata")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"metadataUri": uri,
	})
}

// VerifyMintRequest 铸造结果校验请求体
type VerifyMintRequest struct {
	Signature    string `json:"signature"`
	AssetAddress string `json:"assetAddress"`
}

// VerifyMint 校验铸造交易已上链
func (h *MintHandler) VerifyMint(c *gin.Context) {
	var req VerifyMintRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if req.Signature == "" {
		web.BadRequest(c, "Transaction signature is required")
		return
	}

	if err := h.mints.VerifyMint(c.Request.Context(), req.Signature); err != nil {
		web.FailWithDetails(c, http.StatusOK, "Transaction verification failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"assetAddress": req.AssetAddress,
	})
}
