package indexers

import (
	"net"
	"net/http"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/requester"
)

func newTestRequester() *requester.Requester {
	return requester.New(requester.Options{
		FastTimeout:  time.Second,
		SlowTimeout:  time.Second,
		ProbeTimeout: time.Second,
		Attempts:     1,
		BackoffBase:  time.Millisecond,
	}, nil)
}

// resetHandler aborts every connection with a TCP reset.
func resetHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "cannot hijack", http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			return
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetLinger(0)
		}
		conn.Close()
	})
}
