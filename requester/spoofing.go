package requester

import (
	"net/http"

	"github.com/felipemarinho97/torrent-aggregator/utils"
	"github.com/fereidani/httpdecompressor"
)

// spoofBrowserHeaders makes req look like a navigation from a desktop browser.
// An empty referer becomes the origin of the requested URL, as if the user
// had followed a link on the site itself.
func spoofBrowserHeaders(req *http.Request, referer string) {
	if referer == "" && req.URL != nil {
		referer = req.URL.Scheme + "://" + req.URL.Host + "/"
	}

	req.Header.Set("User-Agent", utils.SpoofedUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", httpdecompressor.ACCEPT_ENCODING)
	req.Header.Set("Referer", referer)
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
}
