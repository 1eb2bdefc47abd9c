package tokenregistry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	safegmx "github.com/purvik6062/safegmx"
)

func TestStatic_TagsSourceKnown(t *testing.T) {
	s := NewStatic(map[string][]safegmx.TokenBinding{
		"USDC": {{Symbol: "USDC", NetworkKey: "arbitrum", ContractAddress: "0xa", Source: safegmx.SourceRegistry}},
	})

	out, err := s.LookupTokenBindings("USDC")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, safegmx.SourceKnown, out[0].Source)
}

func TestStatic_UnknownSymbolReturnsEmpty(t *testing.T) {
	s := NewStatic(nil)
	out, err := s.LookupTokenBindings("NOPE")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExternal_LookupTokenBindings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens", r.URL.Path)
		assert.Equal(t, "FOO", r.URL.Query().Get("symbol"))
		w.Write([]byte(`[{"networkKey":"arbitrum","contractAddress":"0xabc","decimals":18,"verified":true}]`))
	}))
	defer srv.Close()

	e := NewExternal(srv.URL)
	out, err := e.LookupTokenBindings("FOO")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, safegmx.SourceRegistry, out[0].Source)
	assert.Equal(t, safegmx.NetworkKey("arbitrum"), out[0].NetworkKey)
}

func TestListing_LookupTokenBindings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listings", r.URL.Path)
		w.Write([]byte(`[{"networkKey":"arbitrum","contractAddress":"0xdef"}]`))
	}))
	defer srv.Close()

	l := NewListing(srv.URL)
	out, err := l.LookupTokenBindings("BAR")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, safegmx.SourceListing, out[0].Source)
}

func TestHTTPSource_ServerErrorReturnsErr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewExternal(srv.URL)
	_, err := e.LookupTokenBindings("FOO")
	assert.Error(t, err)
}
