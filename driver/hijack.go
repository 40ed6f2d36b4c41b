package driver

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to Rod protocol resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// adDomains are ad and tracking hosts the order page works without.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"facebook.net":          {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"segment.com":           {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"optimizely.com":        {},
	"ads-twitter.com":       {},
	"amazon-adsystem.com":   {},
}

// requestFilter decides which requests of the form tab are dropped.
type requestFilter struct {
	types    map[proto.NetworkResourceType]struct{}
	blockAds bool
}

func newRequestFilter(blockedTypes []string, blockAds bool) *requestFilter {
	f := &requestFilter{
		types:    make(map[proto.NetworkResourceType]struct{}, len(blockedTypes)),
		blockAds: blockAds,
	}
	for _, name := range blockedTypes {
		if rt, ok := resourceTypes[name]; ok {
			f.types[rt] = struct{}{}
		}
	}
	return f
}

func (f *requestFilter) empty() bool {
	return len(f.types) == 0 && !f.blockAds
}

func (f *requestFilter) blocks(rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := f.types[rt]; ok {
		return true
	}
	if !f.blockAds {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && isAdDomain(u.Hostname())
}

// isAdDomain checks a hostname and each of its parent domains.
func isAdDomain(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := adDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
	return false
}

// setupHijack installs the request filter on page. Images and stylesheets
// should stay allowed or the preview screenshot renders blank.
//
// Returns the running HijackRouter, or nil if there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	filter := newRequestFilter(blockedTypes, blockAds)
	if filter.empty() {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if filter.blocks(ctx.Request.Type(), ctx.Request.URL().String()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop is called from Driver.Close.
	go router.Run()

	return router
}
