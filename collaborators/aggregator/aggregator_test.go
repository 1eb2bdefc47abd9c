package aggregator

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	safegmx "github.com/purvik6062/safegmx"
)

func TestQuote_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		var req quoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "arbitrum", req.Network)
		assert.Equal(t, "100", req.SellAmountRaw)

		json.NewEncoder(w).Encode(quoteResponse{
			To:               "0x0000000000000000000000000000000000000a",
			Data:             "0xabcd",
			Value:            "0",
			GasHint:          21000,
			Spender:          "0x0000000000000000000000000000000000000b",
			BuyAmountHintRaw: "9000",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	quote, err := c.Quote("arbitrum", "0xwallet",
		safegmx.TokenBinding{ContractAddress: "0xsell"}, safegmx.TokenBinding{ContractAddress: "0xbuy"},
		big.NewInt(100), 50)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0xcd}, quote.Data)
	assert.Equal(t, big.NewInt(9000), quote.BuyAmountHintRaw)
	assert.Equal(t, "0x0000000000000000000000000000000000000b", quote.Spender)
}

func TestQuote_ServerErrorWrapsAsSwapQuoteFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Quote("arbitrum", "0xwallet", safegmx.TokenBinding{}, safegmx.TokenBinding{}, big.NewInt(1), 0)
	require.Error(t, err)
	te, ok := err.(*safegmx.TradeError)
	require.True(t, ok)
	assert.Equal(t, safegmx.CodeSwapQuoteFailed, te.Code)
}

func TestMinSellAmountRaw_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/minimum", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"minSellAmountRaw": "5000"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	min, err := c.MinSellAmountRaw("FOO", "arbitrum")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5000), min)
}
