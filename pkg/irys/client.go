package irys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/pkg/logger"
)

// UploadReceipt 上传回执
type UploadReceipt struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// Client Irys 节点客户端
type Client struct {
	config *Config
	http   *http.Client
	logger logger.Logger
}

// NewClient 创建客户端
func NewClient(cfg *Config, l logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		logger: l.Named("irys.client"),
	}, nil
}

// Price 查询上传指定字节数的费用，单位 lamports
func (c *Client) Price(ctx context.Context, size int) (uint64, error) {
	url := fmt.Sprintf("%s/price/solana/%d", strings.TrimRight(c.config.NodeURL, "/"), size)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "build price request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "query upload price")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return 0, errors.Wrap(err, "read price response")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Newf("price query failed: status %d: %s", resp.StatusCode, body)
	}

	raw := strings.Trim(strings.TrimSpace(string(body)), `"`)
	price, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse price %q", raw)
	}
	return price, nil
}

// Upload 上传已签名的数据项，主节点失败时回退到备用节点
func (c *Client) Upload(ctx context.Context, item *DataItem) (*UploadReceipt, error) {
	raw, err := item.Marshal()
	if err != nil {
		return nil, err
	}

	receipt, err := c.uploadTo(ctx, c.config.NodeURL, raw)
	if err == nil {
		return receipt, nil
	}
	if c.config.FallbackNodeURL == "" {
		return nil, err
	}

	c.logger.Warn("primary upload node failed, trying fallback",
		"node", c.config.NodeURL,
		"fallback", c.config.FallbackNodeURL,
		"error", err,
	)
	receipt, fallbackErr := c.uploadTo(ctx, c.config.FallbackNodeURL, raw)
	if fallbackErr != nil {
		return nil, errors.CombineErrors(err, fallbackErr)
	}
	return receipt, nil
}

// UploadJSON 将对象编码为 JSON 并作为数据项签名上传
func (c *Client) UploadJSON(ctx context.Context, v any, signer solanago.PrivateKey, extraTags ...Tag) (*UploadReceipt, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal upload payload")
	}

	tags := append([]Tag{{Name: "Content-Type", Value: "application/json"}}, extraTags...)
	item := NewDataItem(payload, tags...)
	if err := item.Sign(signer); err != nil {
		return nil, errors.Wrap(err, "sign data item")
	}

	receipt, err := c.Upload(ctx, item)
	if err != nil {
		return nil, err
	}
	c.logger.Info("uploaded json data item",
		"id", receipt.ID,
		"bytes", len(payload),
	)
	return receipt, nil
}

// URI 上传内容的网关地址
func (c *Client) URI(id string) string {
	return strings.TrimRight(c.config.GatewayURL, "/") + "/" + id
}

// Download 通过网关读取已上传内容
func (c *Client) Download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build download request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", uri)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("download %s failed: status %d", uri, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func (c *Client) uploadTo(ctx context.Context, node string, raw []byte) (*UploadReceipt, error) {
	url := strings.TrimRight(node, "/") + "/tx/solana"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "upload to %s", node)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read upload response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Newf("upload to %s failed: status %d: %s", node, resp.StatusCode, body)
	}

	var receipt UploadReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, errors.Wrap(err, "decode upload receipt")
	}
	if receipt.ID == "" {
		return nil, errors.New("upload receipt missing id")
	}
	return &receipt, nil
}
