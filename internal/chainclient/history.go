package chainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// HistoryTx is one row of the explorer-style history response.
type HistoryTx struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"` // decimal wei
	GasUsed     uint64 `json:"gasUsed,string"`
	IsError     string `json:"isError"`
	TimeStamp   string `json:"timeStamp"`
	BlockNumber string `json:"blockNumber"`
}

// Failed reports whether the explorer marked this transaction as
// reverted (isError="1").
func (t HistoryTx) Failed() bool { return t.IsError == "1" }

type historyResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Result  []HistoryTx `json:"result"`
}

// HistoryClient is the backfill/polling-fallback data source: an
// explorer-style HTTP GET of a contract's transaction list starting
// at a given block.
type HistoryClient struct {
	baseURL string
	http    *http.Client
}

func NewHistoryClient(baseURL string) *HistoryClient {
	return &HistoryClient{baseURL: baseURL, http: &http.Client{}}
}

// TxList fetches every transaction touching address from startBlock
// onward.
func (h *HistoryClient) TxList(ctx context.Context, address string, startBlock uint64) ([]HistoryTx, error) {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return nil, fmt.Errorf("chainclient: invalid history base url: %w", err)
	}
	q := u.Query()
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", strconv.FormatUint(startBlock, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("chainclient: build history request: %w", err)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chainclient: history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chainclient: history endpoint returned status %d", resp.StatusCode)
	}

	var out historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chainclient: decode history response: %w", err)
	}
	return out.Result, nil
}
