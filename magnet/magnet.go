package magnet

import (
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

// Handle is the parsed form of a magnet link.
type Handle struct {
	URI         string
	InfoHash    string
	DisplayName string
	Trackers    []string
}

// Parse validates uri as a BitTorrent v1 magnet link.
func Parse(uri string) (Handle, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "magnet:") {
		return Handle{}, fmt.Errorf("not a magnet link: %q", uri)
	}

	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid magnet link: %w", err)
	}

	return Handle{
		URI:         uri,
		InfoHash:    m.InfoHash.HexString(),
		DisplayName: m.DisplayName,
		Trackers:    m.Trackers,
	}, nil
}
