package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockable maps config names to the cosmetic resource types that may be
// dropped. Documents, scripts and XHR are never blockable: the portal's
// partial page updates and the downloads depend on them.
var blockable = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blockedTypes resolves config names into the set of types to fail.
func blockedTypes(names []string) (map[proto.NetworkResourceType]bool, error) {
	set := make(map[proto.NetworkResourceType]bool, len(names))
	for _, n := range names {
		rt, ok := blockable[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("browser: cannot block resource type %q", n)
		}
		set[rt] = true
	}
	return set, nil
}

// blockResources intercepts the page's requests and fails those whose type
// is in blocked. The returned router must be stopped when the page goes away.
func blockResources(page *rod.Page, blocked map[proto.NetworkResourceType]bool) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("browser: hijack: %w", err)
	}
	go router.Run()
	return router, nil
}
