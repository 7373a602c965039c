package zhitu

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/config"
	"github.com/junzhu/tidegate/backend/pkg/httputil"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

func TestIsListingCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"600519.SH", true},
		{"000002.SZ", true},
		{"300750.SZ", true},
		{"688981.SH", true},
		{"830799.BJ", true},
		{"430047.BJ", true},
		{"000001.SH", false}, // 上证综指
		{"399001.SZ", false}, // 深证成指
		{"399006.SZ", false}, // 创业板指
		{"510300.SH", false}, // ETF
		{"12345", false},
		{"60051A.SH", false},
	}

	for _, tt := range tests {
		if got := IsListingCode(tt.code); got != tt.want {
			t.Errorf("IsListingCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func newSnapshotTestServer(t *testing.T, realall string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "test-token" {
			t.Errorf("missing token on %s", r.URL.Path)
		}
		switch {
		case r.URL.Path == "/hs/public/realall":
			fmt.Fprint(w, realall)
		case strings.HasPrefix(r.URL.Path, "/hs/pool/dtgc/"):
			fmt.Fprint(w, `[{"dm":"000100","mc":"跌停一"},{"dm":"000200","mc":"跌停二"},{"dm":"000300","mc":"跌停三"}]`)
		case strings.HasPrefix(r.URL.Path, "/hs/pool/ztgc/"):
			fmt.Fprint(w, `[{"dm":"000400","mc":"涨停一"},{"dm":"000500","mc":"涨停二"},{"dm":"000600","mc":"涨停三"}]`)
		case strings.HasPrefix(r.URL.Path, "/hs/pool/zbgc/"):
			fmt.Fprint(w, `[{"dm":"000700","mc":"炸板一"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestBuilder(t *testing.T, baseURL string) *SnapshotBuilder {
	t.Helper()
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "test"})
	httpClient := httputil.New(log, 5*time.Second).DisableRetry()
	client := NewClient(config.ZhituConfig{BaseURL: baseURL, Token: "test-token"}, httpClient, log)
	return NewSnapshotBuilder(client, log, time.UTC)
}

func TestFetchAggregateStats(t *testing.T) {
	// Enveloped feed: one falling index, one rising listing, one falling
	// listing, one suspended listing and one index-like code to skip.
	realall := `{"code":200,"msg":"ok","data":[
		{"dm":"000001.SH","mc":"上证指数","pc":-3.5},
		{"dm":"399001.SZ","mc":"深证成指","pc":-1.0},
		{"dm":"600519","mc":"贵州茅台","pc":1.2},
		{"dm":"000002","mc":"万科A","pc":-0.5},
		{"dm":"300001","mc":"停牌股","pc":"--"},
		{"dm":"399300","mc":"沪深300","pc":-2.0}
	]}`
	srv := newSnapshotTestServer(t, realall)
	defer srv.Close()

	snap, err := newTestBuilder(t, srv.URL).FetchAggregateStats(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 3.5, snap.IndexDrawdownPct, 1e-9)
	assert.Equal(t, 1, snap.UpCount)
	assert.Equal(t, 1, snap.DownCount)
	assert.Equal(t, 3, snap.LimitDownCount)
	assert.InDelta(t, 25.0, snap.BrokenBoardRate, 1e-9) // 1 broken / 4 attempts
}

func TestFetchAggregateStatsEmptyFeedFails(t *testing.T) {
	srv := newSnapshotTestServer(t, `[]`)
	defer srv.Close()

	_, err := newTestBuilder(t, srv.URL).FetchAggregateStats(context.Background())
	require.Error(t, err)
	assert.True(t, contracts.IsFetchError(err))
}

func TestFetchAggregateStatsUpstreamErrorCode(t *testing.T) {
	srv := newSnapshotTestServer(t, `{"code":401,"msg":"invalid token","data":[]}`)
	defer srv.Close()

	_, err := newTestBuilder(t, srv.URL).FetchAggregateStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
