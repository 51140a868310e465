package helius

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solpet-labs/solpet/pkg/logger"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		APIKey:         "test-key",
		BaseURL:        url,
		Cluster:        "devnet",
		RequestTimeout: 5 * time.Second,
	}, logger.Noop())
	require.NoError(t, err)
	return client
}

func TestExplainStructuredContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai-transaction-explainer", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "devnet", req["cluster"])

		_, _ = w.Write([]byte(`{
			"content": {
				"header": {"transactionType": "NFT Mint"},
				"summary": "Minted <address>abc</address> to wallet.",
				"keyPoints": ["• first point", "* second point"],
				"additionalContext": "Extra context."
			}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	exp, err := client.Explain(context.Background(), map[string]any{"signature": "sig"})
	require.NoError(t, err)
	assert.Equal(t, "NFT Mint", exp.Type)
	assert.Equal(t, "Minted abc to wallet", exp.Summary)
	assert.Equal(t, []string{"first point", "second point"}, exp.KeyPoints)
	assert.Equal(t, "Extra context", exp.AdditionalContext)
}

func TestExplainLegacyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": "# Token Swap\nSwapped 1 SOL for 150 USDC."}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	exp, err := client.Explain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Token Swap", exp.Type)
	assert.Equal(t, "Swapped 1 SOL for 150 USDC", exp.Summary)
}

func TestExplainWithoutAPIKey(t *testing.T) {
	client, err := NewClient(&Config{
		BaseURL:        "https://orb-api.helius-rpc.com",
		RequestTimeout: time.Second,
	}, logger.Noop())
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	_, err = client.Explain(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestExplainServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Explain(context.Background(), nil)
	assert.Error(t, err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "abc sent tokens", CleanText("<address>abc</address> sent tokens."))
	assert.Equal(t, "point", CleanText("• point"))
	assert.Equal(t, "", CleanText("  "))
}
