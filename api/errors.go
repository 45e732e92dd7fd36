package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/felipemarinho97/torrent-aggregator/schema"
	"github.com/felipemarinho97/torrent-aggregator/search"
)

const (
	MsgConnectionBlocked = "Please enable your VPN before searching for torrents!"
	MsgNoResults         = "no results found"
	MsgEmptyQuery        = "Please enter a movie title"
)

// UserMessage maps a search failure to the status code and text shown to
// the caller.
func UserMessage(err error) (int, string) {
	switch {
	case errors.Is(err, schema.ErrConnectionBlocked):
		return http.StatusServiceUnavailable, MsgConnectionBlocked
	case search.IsSelectorError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "search timed out"
	default:
		return http.StatusBadGateway, "search failed: " + err.Error()
	}
}
