package chainclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryClient_TxList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "account", r.URL.Query().Get("module"))
		assert.Equal(t, "txlist", r.URL.Query().Get("action"))
		assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
		assert.Equal(t, "100", r.URL.Query().Get("startblock"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{"hash":"0x1","from":"0xa","to":"0xc","value":"11000000000000000000","gasUsed":"100000","isError":"0","timeStamp":"1700000000","blockNumber":"101"},
				{"hash":"0x2","from":"0xb","to":"0xc","value":"0","gasUsed":"250000","isError":"1","timeStamp":"1700000010","blockNumber":"102"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewHistoryClient(srv.URL + "/api")
	txs, err := client.TxList(context.Background(), "0xabc", 100)

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "0x1", txs[0].Hash)
	assert.False(t, txs[0].Failed())
	assert.True(t, txs[1].Failed())
}

func TestHistoryClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHistoryClient(srv.URL)
	_, err := client.TxList(context.Background(), "0xabc", 0)
	assert.Error(t, err)
}
