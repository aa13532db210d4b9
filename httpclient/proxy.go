package httpclient

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/joeycumines/go-evhttp/internal/wireerr"
)

// ProxyInfo maps scheme -> proxy URI, per spec 4.G's `proxy_info` option
// (http/https/ws/wss each independently routable through a proxy).
type ProxyInfo map[string]*url.URL

// proxyFor resolves the proxy URL that applies to req's scheme, or nil
// if none configured.
func (p ProxyInfo) proxyFor(scheme string) *url.URL {
	if p == nil {
		return nil
	}
	return p[scheme]
}

// requestURIFor returns the request-line target: an absolute URI when
// routed through a plain HTTP proxy (no TLS, no tunnel), or the
// path(+query) otherwise - spec 4.G RESOLVE.
func requestURIFor(req *Request, proxy *url.URL, tunneled bool) string {
	if proxy != nil && !tunneled && req.URL.Scheme == "http" {
		return req.URL.String()
	}
	u := *req.URL
	u.Scheme = ""
	u.Host = ""
	path := u.String()
	if path == "" {
		path = "/"
	}
	return path
}

// connectTunnel issues "CONNECT host:port HTTP/1.1" over conn (already
// dialled to the proxy) and upgrades to TLS on a 2xx reply - spec 4.G
// RESOLVE: "with a proxy and TLS, a CONNECT host:port is issued first;
// on 2xx the same socket is upgraded to TLS and reused."
func connectTunnel(conn *Connection, targetHost string, targetPort int, insecureSkipVerify bool) error {
	hostPort := targetHost + ":" + strconv.Itoa(targetPort)
	if err := conn.WriteRequestLine("CONNECT", hostPort, HTTP11); err != nil {
		return wireerr.Connection("connect tunnel write", err)
	}
	h := NewHeaders(ClientHeaders)
	h.Set("Host", hostPort)
	if err := conn.WriteHeaders(h); err != nil {
		return wireerr.Connection("connect tunnel write", err)
	}
	if err := conn.Flush(); err != nil {
		return wireerr.Connection("connect tunnel flush", err)
	}

	status, err := conn.ReadStatusLine()
	if err != nil {
		return err
	}
	// CONNECT responses carry headers but no body even on success.
	if _, err := conn.ReadHeaders(); err != nil {
		return err
	}
	conn.MarkProcessed()

	if status.StatusCode < 200 || status.StatusCode >= 300 {
		return wireerr.Protocol(fmt.Sprintf("proxy CONNECT failed: %d %s", status.StatusCode, status.Reason), nil)
	}

	if err := conn.upgradeTLS(targetHost, insecureSkipVerify); err != nil {
		return err
	}
	return nil
}
