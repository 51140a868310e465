// Package helius 封装 Helius AI 交易解读服务的客户端
package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/solpet-labs/solpet/pkg/logger"
)

// ErrNoAPIKey 未配置密钥
var ErrNoAPIKey = errors.New("helius: api key not configured")

// Explanation 一笔交易的结构化解读
type Explanation struct {
	Type              string
	Summary           string
	KeyPoints         []string
	AdditionalContext string
}

// Client Helius AI 解读客户端
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
		logger: l.Named("helius.explainer"),
	}, nil
}

// Enabled 是否配置了密钥
func (c *Client) Enabled() bool {
	return c.config.APIKey != ""
}

// explainRequest 解读请求体，transaction 为 jsonParsed 形式的交易
type explainRequest struct {
	Transaction any    `json:"transaction"`
	Cluster     string `json:"cluster"`
}

// explainResponse 响应体，content 可能是结构化对象或旧版纯文本
type explainResponse struct {
	Content json.RawMessage `json:"content"`
}

type explainContent struct {
	Header struct {
		TransactionType string `json:"transactionType"`
	} `json:"header"`
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"keyPoints"`
	AdditionalContext string   `json:"additionalContext"`
}

// Explain 请求对交易的 AI 解读
// transaction 应为 jsonParsed 编码的完整交易结果
func (c *Client) Explain(ctx context.Context, transaction any) (*Explanation, error) {
	if !c.Enabled() {
		return nil, ErrNoAPIKey
	}

	payload, err := json.Marshal(explainRequest{
		Transaction: transaction,
		Cluster:     c.config.Cluster,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal explain request")
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/ai-transaction-explainer"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build explain request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call ai explainer")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read explainer response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("ai explainer error: status %d", resp.StatusCode)
	}

	var out explainResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "decode explainer response")
	}
	if len(out.Content) == 0 {
		return nil, errors.New("explainer response missing content")
	}
	return parseContent(out.Content)
}

// parseContent 兼容结构化与旧版纯文本两种 content
func parseContent(raw json.RawMessage) (*Explanation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var legacy string
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, errors.Wrap(err, "decode legacy content")
		}
		return parseLegacyContent(legacy), nil
	}

	var content explainContent
	if err := json.Unmarshal(trimmed, &content); err != nil {
		return nil, errors.Wrap(err, "decode structured content")
	}

	exp := &Explanation{
		Type:              content.Header.TransactionType,
		Summary:           "Transaction details",
		AdditionalContext: CleanText(content.AdditionalContext),
	}
	if exp.Type == "" {
		exp.Type = "Transaction"
	}
	if content.Summary != "" {
		exp.Summary = CleanText(content.Summary)
	}
	for _, point := range content.KeyPoints {
		exp.KeyPoints = append(exp.KeyPoints, CleanText(point))
	}
	return exp, nil
}

var legacyTitleRe = regexp.MustCompile(`^#\s*(.*?)(?:\n|$)`)

// parseLegacyContent 旧版格式：可选的 "# 标题" 首行加正文
func parseLegacyContent(content string) *Explanation {
	exp := &Explanation{Type: "Transaction"}
	if m := legacyTitleRe.FindStringSubmatch(content); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			exp.Type = title
		}
		content = legacyTitleRe.ReplaceAllString(content, "")
	}
	exp.Summary = CleanText(content)
	return exp
}

var (
	addressTagRe = regexp.MustCompile(`<address>(.*?)</address>`)
	bulletRe     = regexp.MustCompile(`[•*]`)
	trailingDot  = regexp.MustCompile(`\.$`)
)

// CleanText 去除地址标记、项目符号与句尾句点
func CleanText(text string) string {
	text = addressTagRe.ReplaceAllString(text, "$1")
	text = bulletRe.ReplaceAllString(text, "")
	text = trailingDot.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
