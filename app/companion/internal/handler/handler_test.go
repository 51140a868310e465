package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
	"github.com/solpet-labs/solpet/app/companion/internal/gameconfig"
	"github.com/solpet-labs/solpet/app/companion/internal/service"
	"github.com/solpet-labs/solpet/pkg/irys"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/solana"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubChain 按字段覆盖链上行为，未覆盖的调用一律报错
type stubChain struct {
	signaturesFn      func(ctx context.Context, wallet solanago.PublicKey, limit int) ([]solana.SignatureInfo, error)
	parsedFn          func(ctx context.Context, sig solanago.Signature) (*solana.ParsedTransactionResult, error)
	programAccountsFn func(ctx context.Context, program solanago.PublicKey, offset uint64, match []byte) (map[solanago.PublicKey][]byte, error)
}

func (s *stubChain) Balance(context.Context, solanago.PublicKey) (uint64, error) {
	return 0, errors.New("not stubbed")
}

func (s *stubChain) VerifySignature(context.Context, solanago.Signature) error {
	return errors.New("not stubbed")
}

func (s *stubChain) IsConfirmed(context.Context, solanago.Signature) (bool, error) {
	return false, errors.New("not stubbed")
}

func (s *stubChain) ConfirmTransaction(context.Context, solanago.Signature, uint64) error {
	return errors.New("not stubbed")
}

func (s *stubChain) RecentSignatures(ctx context.Context, wallet solanago.PublicKey, limit int) ([]solana.SignatureInfo, error) {
	if s.signaturesFn == nil {
		return nil, errors.New("not stubbed")
	}
	return s.signaturesFn(ctx, wallet, limit)
}

func (s *stubChain) ParsedTransaction(ctx context.Context, sig solanago.Signature) (*solana.ParsedTransactionResult, error) {
	if s.parsedFn == nil {
		return nil, errors.New("not stubbed")
	}
	return s.parsedFn(ctx, sig)
}

func (s *stubChain) BuildTransfer(context.Context, solanago.PublicKey, solanago.PublicKey, uint64) (*solana.UnsignedTransfer, error) {
	return nil, errors.New("not stubbed")
}

func (s *stubChain) LatestBlockhash(context.Context) (*solana.Blockhash, error) {
	return nil, errors.New("not stubbed")
}

func (s *stubChain) AccountData(context.Context, solanago.PublicKey) ([]byte, error) {
	return nil, errors.New("not stubbed")
}

func (s *stubChain) ProgramAccounts(ctx context.Context, program solanago.PublicKey, offset uint64, match []byte) (map[solanago.PublicKey][]byte, error) {
	if s.programAccountsFn == nil {
		return nil, errors.New("not stubbed")
	}
	return s.programAccountsFn(ctx, program, offset, match)
}

func (s *stubChain) SendRawTransaction(context.Context, string) (solanago.Signature, error) {
	return solanago.Signature{}, errors.New("not stubbed")
}

type stubUploader struct{}

func (stubUploader) Price(context.Context, int) (uint64, error) { return 0, errors.New("not stubbed") }

func (stubUploader) UploadJSON(context.Context, any, solanago.PrivateKey, ...irys.Tag) (*irys.UploadReceipt, error) {
	return nil, errors.New("not stubbed")
}

func (stubUploader) URI(id string) string { return "https://gateway.irys.xyz/" + id }

func (stubUploader) Download(context.Context, string) ([]byte, error) {
	return nil, errors.New("not stubbed")
}

func newSyncRouter(t *testing.T, chain service.ChainClient) *gin.Engine {
	t.Helper()
	store, err := gameconfig.NewStore(gameconfig.DefaultConfig(), logger.Noop())
	require.NoError(t, err)

	classifier := classify.NewClassifier(service.NewChainReader(chain), nil, nil, logger.Noop())
	sync := service.NewSyncService(chain, classifier, nil, logger.Noop())

	r := gin.New()
	NewSyncHandler(sync, store, logger.Noop()).Register(r)
	return r
}

func doRequest(r *gin.Engine, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCalculateExperienceRequiresWallet(t *testing.T) {
	r := newSyncRouter(t, &stubChain{})
	w := doRequest(r, http.MethodGet, "/api/calculate-experience", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Wallet address is required", decodeBody(t, w)["error"])
}

func TestCalculateExperienceRejectsBadTimestamp(t *testing.T) {
	r := newSyncRouter(t, &stubChain{})
	wallet := solanago.NewWallet().PublicKey().String()
	w := doRequest(r, http.MethodGet, "/api/calculate-experience?wallet="+wallet+"&lastUpdated=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid lastUpdated timestamp", decodeBody(t, w)["error"])
}

func TestCalculateExperienceBlockedShape(t *testing.T) {
	r := newSyncRouter(t, &stubChain{})
	wallet := solanago.NewWallet().PublicKey().String()
	lastUpdated := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	dob := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)

	w := doRequest(r, http.MethodGet,
		"/api/calculate-experience?wallet="+wallet+"&lastUpdated="+lastUpdated+"&dateOfBirth="+dob, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["canSync"])
	assert.Equal(t, float64(0), body["experiencePoints"])
	assert.Contains(t, body, "hoursUntilNextSync")
	assert.Contains(t, body["message"], "already synced today")
	assert.Contains(t, body, "lastUpdateTime")
	assert.Contains(t, body, "currentTime")
}

func TestCalculateExperienceAllowedShape(t *testing.T) {
	wallet := solanago.NewWallet().PublicKey()
	sig := solanago.Signature{1}.String()
	blockTime := time.Now().Unix()

	chain := &stubChain{
		signaturesFn: func(ctx context.Context, w solanago.PublicKey, limit int) ([]solana.SignatureInfo, error) {
			return []solana.SignatureInfo{{Signature: sig, BlockTime: &blockTime}}, nil
		},
		parsedFn: func(ctx context.Context, s solanago.Signature) (*solana.ParsedTransactionResult, error) {
			return &solana.ParsedTransactionResult{
				Transaction: &solana.ParsedTransaction{
					Message: solana.ParsedMessage{
						AccountKeys: []solana.ParsedAccountKey{{Pubkey: wallet.String()}},
					},
				},
			}, nil
		},
	}
	r := newSyncRouter(t, chain)

	w := doRequest(r, http.MethodGet, "/api/calculate-experience?wallet="+wallet.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["canSync"])
	assert.Equal(t, float64(1), body["transactionCount"])
	// 基础 5 + 首见类型 3 + 发送动作 3
	assert.Equal(t, float64(11), body["experiencePoints"])
}

func TestTransactionDetailsShape(t *testing.T) {
	wallet := solanago.NewWallet().PublicKey()
	chain := &stubChain{
		parsedFn: func(ctx context.Context, s solanago.Signature) (*solana.ParsedTransactionResult, error) {
			return nil, errors.New("node unavailable")
		},
	}
	r := newSyncRouter(t, chain)

	sig := solanago.Signature{2}.String()
	w := doRequest(r, http.MethodGet, "/api/transaction-details?signature="+sig+"&wallet="+wallet.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	// 链上不可用时降级为通用分类
	body := decodeBody(t, w)
	assert.Equal(t, "Generic", body["type"])
	assert.Equal(t, "See advanced details for more information", body["summary"])
	assert.Equal(t, "OTHER", body["action"])
}

func TestTransactionDetailsRequiresParams(t *testing.T) {
	r := newSyncRouter(t, &stubChain{})
	w := doRequest(r, http.MethodGet, "/api/transaction-details?wallet=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Transaction signature is required", decodeBody(t, w)["error"])
}

func TestGameConfigShape(t *testing.T) {
	r := newSyncRouter(t, &stubChain{})
	w := doRequest(r, http.MethodGet, "/api/game-config", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	thresholds, ok := body["levelThresholds"].([]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), thresholds[0])
	assert.Contains(t, body, "evolutionThresholds")
	assert.Contains(t, body, "companionImages")
}

func TestCheckCompanion(t *testing.T) {
	owner := solanago.NewWallet().PublicKey()
	collection := solanago.NewWallet().PublicKey()
	chain := &stubChain{
		programAccountsFn: func(ctx context.Context, program solanago.PublicKey, offset uint64, match []byte) (map[solanago.PublicKey][]byte, error) {
			return map[solanago.PublicKey][]byte{}, nil
		},
	}
	companions := service.NewCompanionService(chain, stubUploader{}, collection, logger.Noop())

	r := gin.New()
	NewCompanionHandler(companions, logger.Noop()).Register(r)

	w := doRequest(r, http.MethodGet, "/api/check-companion?wallet="+owner.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["hasCompanion"])
	assert.Equal(t, float64(0), body["companionCount"])
}

func newAdminRouter(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	collection := solanago.NewWallet().PublicKey()
	chain := &stubChain{
		programAccountsFn: func(ctx context.Context, program solanago.PublicKey, offset uint64, match []byte) (map[solanago.PublicKey][]byte, error) {
			return map[solanago.PublicKey][]byte{}, nil
		},
	}
	companions := service.NewCompanionService(chain, stubUploader{}, collection, logger.Noop())
	inactivity := service.NewInactivityService(companions, chain, stubUploader{},
		solanago.NewWallet().PrivateKey, collection, nil, logger.Noop())

	r := gin.New()
	NewAdminHandler(inactivity, secret, logger.Noop()).Register(r)
	return r
}

func TestSweepInactiveAuth(t *testing.T) {
	r := newAdminRouter(t, "cron-secret")

	w := doRequest(r, http.MethodPost, "/api/update-inactive-companions", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/update-inactive-companions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/cron/update-companions", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	results, ok := body["results"].([]any)
	require.True(t, ok)
	assert.Empty(t, results)
}

func TestSweepInactiveNoSecretConfigured(t *testing.T) {
	r := newAdminRouter(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/update-inactive-companions", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBuildUpdateRequiresFields(t *testing.T) {
	registryless := service.NewUpdateService(&stubChain{}, stubUploader{}, nil, nil,
		nil, solanago.PublicKey{}, nil, logger.Noop())
	r := gin.New()
	NewUpdateHandler(registryless, logger.Noop()).Register(r)

	w := doRequest(r, http.MethodPost, "/api/update-companion", `{"payerPublicKey":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Asset address is required", decodeBody(t, w)["error"])
}

// 请求体字段沿用客户端既有命名：companionData / payerPublicKey
func TestBuildUpdateBindsClientFieldNames(t *testing.T) {
	registryless := service.NewUpdateService(&stubChain{}, stubUploader{}, nil, nil,
		nil, solanago.PublicKey{}, nil, logger.Noop())
	r := gin.New()
	NewUpdateHandler(registryless, logger.Noop()).Register(r)

	w := doRequest(r, http.MethodPost, "/api/update-companion",
		`{"assetAddress":"asset","companionData":{"name":"Pet"},"serverSecretKey":"key","fundingSignature":"sig"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payer public key is required", decodeBody(t, w)["error"])

	w = doRequest(r, http.MethodPost, "/api/update-companion",
		`{"assetAddress":"asset","payerPublicKey":"payer","serverSecretKey":"key","fundingSignature":"sig"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Companion data is required", decodeBody(t, w)["error"])
}

func TestPrepareFundingQueryParam(t *testing.T) {
	registryless := service.NewUpdateService(&stubChain{}, stubUploader{}, nil, nil,
		nil, solanago.PublicKey{}, nil, logger.Noop())
	r := gin.New()
	NewUpdateHandler(registryless, logger.Noop()).Register(r)

	w := doRequest(r, http.MethodGet, "/api/update-companion", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// walletAddress 被识别后进入服务层，存储报价未打桩返回 500 而非 400
	wallet := solanago.NewWallet().PublicKey().String()
	w = doRequest(r, http.MethodGet, "/api/update-companion?walletAddress="+wallet, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
