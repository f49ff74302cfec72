package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	slugs := map[string]bool{"go-tips": true}

	cases := []struct {
		href     string
		reason   string
		resolved bool
	}{
		{"", ReasonEmpty, true},
		{"#", ReasonEmpty, true},
		{"javascript:void(0)", ReasonJavaScript, true},
		{"#section", "", true},
		{"mailto:hi@example.com", "", true},
		{"/blog/go-tips", "", true},
		{"/blog/go-tips/", "", true},
		{"/blog/go-tips?ref=nav#top", "", true},
		{"/blog/missing-post", ReasonNotFound, true},
		{"/images/cover.png", "", true},
		{"/", "", true},
		{"/%zz", ReasonMalformed, true},
		{"https://", ReasonMalformed, true},
		{"https://example.com/page", "", false},
		{"//cdn.example.com/x", "", false},
		{"relative/path", "", true},
	}

	for _, tc := range cases {
		reason, resolved := classify(tc.href, slugs)
		assert.Equal(t, tc.reason, reason, tc.href)
		assert.Equal(t, tc.resolved, resolved, tc.href)
	}
}

func TestScan_InternalOnly(t *testing.T) {
	checker := NewChecker(&Config{Workers: 2, Timeout: time.Second})
	pages := []Page{
		{ContentID: "b", Body: `<p><a href="/blog/alpha">ok</a> <a href="/blog/ghost">gone</a></p>`},
		{ContentID: "a", Body: `<a href="javascript:alert(1)">x</a><a href="https://example.com">ext</a>`},
		{ContentID: "c", Body: `<p>no links</p>`},
	}

	res := checker.Scan(context.Background(), pages, map[string]bool{"alpha": true})

	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 4, res.Links)
	assert.Zero(t, res.Probed)
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, []BrokenLink{
		{ContentID: "a", Href: "javascript:alert(1)", Reason: ReasonJavaScript},
		{ContentID: "b", Href: "/blog/ghost", Reason: ReasonNotFound},
	}, res.Broken)
}

func TestScan_ProbesExternalLinksOnce(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/dead" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewChecker(&Config{Workers: 3, Timeout: time.Second, ProbeExternal: true})
	pages := []Page{
		{ContentID: "a", Body: `<a href="` + srv.URL + `/ok">ok</a><a href="` + srv.URL + `/dead">dead</a>`},
		{ContentID: "b", Body: `<a href="` + srv.URL + `/dead">dead again</a>`},
		{ContentID: "c", Body: `<a href="http://127.0.0.1:1/unreachable">down</a>`},
	}

	res := checker.Scan(context.Background(), pages, nil)

	require.Len(t, res.Broken, 3)
	assert.Equal(t, 3, res.Probed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, BrokenLink{ContentID: "a", Href: srv.URL + "/dead", Reason: ReasonStatus, StatusCode: 404}, res.Broken[0])
	assert.Equal(t, "b", res.Broken[1].ContentID)
	assert.Equal(t, BrokenLink{ContentID: "c", Href: "http://127.0.0.1:1/unreachable", Reason: ReasonFailed}, res.Broken[2])
	assert.Equal(t, 3, res.Affected)
}
