package browser

import (
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	config := common.NewDefaultConfig()
	logger := common.GetLogger()
	return NewService(config, logger)
}

func TestShouldBlockResourceTypes(t *testing.T) {
	svc := newTestService(t)

	assert.True(t, svc.shouldBlock("https://example.com/logo", network.ResourceTypeImage))
	assert.True(t, svc.shouldBlock("https://example.com/intro", network.ResourceTypeMedia))
	assert.True(t, svc.shouldBlock("https://example.com/font", network.ResourceTypeFont))
	assert.False(t, svc.shouldBlock("https://example.com/app", network.ResourceTypeDocument))
	assert.False(t, svc.shouldBlock("https://example.com/api/apply", network.ResourceTypeXHR))
}

func TestShouldBlockExtensions(t *testing.T) {
	svc := newTestService(t)

	assert.True(t, svc.shouldBlock("https://example.com/banner.png", network.ResourceTypeOther))
	assert.True(t, svc.shouldBlock("https://example.com/type.woff2", network.ResourceTypeOther))
	// Extension match ignores the query string
	assert.True(t, svc.shouldBlock("https://example.com/banner.jpg?v=3", network.ResourceTypeOther))
	assert.False(t, svc.shouldBlock("https://example.com/apply.html", network.ResourceTypeOther))
	// Extension embedded mid-path does not count
	assert.False(t, svc.shouldBlock("https://example.com/a.png.example/page", network.ResourceTypeOther))
}

func TestShouldBlockTrackerDomains(t *testing.T) {
	svc := newTestService(t)

	assert.True(t, svc.shouldBlock("https://www.google-analytics.com/collect", network.ResourceTypeXHR))
	assert.True(t, svc.shouldBlock("https://cdn.hotjar.com/hotjar.js", network.ResourceTypeScript))
	assert.False(t, svc.shouldBlock("https://curtinmaritime.bamboohr.com/jobs", network.ResourceTypeDocument))
}

func TestShouldBlockNothingWhenUnconfigured(t *testing.T) {
	svc := newTestService(t)
	svc.config.Browser.BlockedResources = nil
	svc.config.Browser.BlockedExtensions = nil
	svc.config.Browser.BlockedDomains = nil

	assert.False(t, svc.shouldBlock("https://example.com/banner.png", network.ResourceTypeImage))
}

func TestHelperCallEncodesArguments(t *testing.T) {
	call := HelperCall("clickByHints", "''", []string{"apply now", "apply"})

	assert.True(t, strings.HasPrefix(call, "window.__peto ? window.__peto.clickByHints("))
	assert.Contains(t, call, `["apply now","apply"]`)
	assert.True(t, strings.HasSuffix(call, ": ''"))
}

func TestHelperCallMultipleArguments(t *testing.T) {
	payload := map[string]string{"first_name": "Elijah"}
	opts := map[string]interface{}{"yes": []string{"authorized to work"}}

	call := HelperCall("fillProfile", "0", payload, opts)

	assert.Contains(t, call, `{"first_name":"Elijah"}`)
	assert.Contains(t, call, `"authorized to work"`)
	assert.Contains(t, call, ", ")
}

func TestHelperCallNoArguments(t *testing.T) {
	call := HelperCall("detectCaptcha", "false")
	assert.Equal(t, "window.__peto ? window.__peto.detectCaptcha() : false", call)
}

func TestPopupRegistryTracksByOpener(t *testing.T) {
	reg := newPopupRegistry()
	opener := target.ID("opener-1")

	reg.add(&target.Info{TargetID: "pop-1", Type: "page", OpenerID: opener})
	reg.add(&target.Info{TargetID: "pop-2", Type: "page", OpenerID: opener})
	// Targets without an opener are session tabs, never popups
	reg.add(&target.Info{TargetID: "tab-1", Type: "page"})
	// Non-page targets are ignored
	reg.add(&target.Info{TargetID: "sw-1", Type: "service_worker", OpenerID: opener})

	newest := reg.takeNewest(opener)
	require.NotNil(t, newest)
	assert.Equal(t, target.ID("pop-2"), newest.TargetID)

	next := reg.takeNewest(opener)
	require.NotNil(t, next)
	assert.Equal(t, target.ID("pop-1"), next.TargetID)

	assert.Nil(t, reg.takeNewest(opener))
	assert.Nil(t, reg.takeNewest(target.ID("tab-1")))
}

func TestPopupRegistryUpdateRefreshesURL(t *testing.T) {
	reg := newPopupRegistry()
	opener := target.ID("opener-1")

	reg.add(&target.Info{TargetID: "pop-1", Type: "page", OpenerID: opener, URL: "about:blank"})
	reg.update(&target.Info{TargetID: "pop-1", Type: "page", OpenerID: opener, URL: "https://example.com/apply"})

	got := reg.takeNewest(opener)
	require.NotNil(t, got)
	assert.Equal(t, "https://example.com/apply", got.URL)
}

func TestPopupRegistryRemove(t *testing.T) {
	reg := newPopupRegistry()
	opener := target.ID("opener-1")

	reg.add(&target.Info{TargetID: "pop-1", Type: "page", OpenerID: opener})
	reg.remove(target.ID("pop-1"))

	assert.Nil(t, reg.takeNewest(opener))
}

func TestIsSocialURL(t *testing.T) {
	assert.True(t, isSocialURL("https://www.facebook.com/sharer/sharer.php?u=x"))
	assert.True(t, isSocialURL("https://twitter.com/intent/tweet"))
	assert.True(t, isSocialURL("https://www.linkedin.com/shareArticle"))
	assert.False(t, isSocialURL("https://gldd.com/careers/"))
	assert.False(t, isSocialURL("https://www.mansonconstruction.com/careers"))
}
