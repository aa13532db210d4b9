package httpclient

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joeycumines/go-evhttp/internal/wireerr"
)

// connState is the Connection state machine: Idle -> Acquired -> Writing
// -> ReadingHeaders -> ReadingBody -> Idle | Closed (spec data model).
type connState int

const (
	connIdle connState = iota
	connAcquired
	connWriting
	connReadingHeaders
	connReadingBody
	connClosed
)

// Connection wraps one TCP (optionally TLS) socket and its parser state,
// satisfying pool.Conn so it can be managed by a generic
// pool.Pool[*Connection, HttpClient].
type Connection struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer

	state        connState
	idleDeadline time.Time
	keepAliveDur time.Duration
	processed    int
}

// dialConnection opens a TCP connection to host:port, optionally wrapped
// in TLS when useTLS is set - the plain, non-tunnelled dial path; the
// CONNECT-tunnel path lives in proxy.go and upgrades an existing
// Connection in place.
func dialConnection(host string, port int, useTLS bool, keepAlive time.Duration, insecureSkipVerify bool) (*Connection, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	raw, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return nil, wireerr.Connection("dial", err)
	}

	c := &Connection{netConn: raw, keepAliveDur: keepAlive}
	if useTLS {
		if err := c.upgradeTLS(host, insecureSkipVerify); err != nil {
			_ = raw.Close()
			return nil, err
		}
	}
	c.br = bufio.NewReader(c.netConn)
	c.bw = bufio.NewWriter(c.netConn)
	c.state = connIdle
	c.refreshIdleDeadline()
	return c, nil
}

// upgradeTLS wraps netConn in a TLS client connection and performs the
// handshake - used both for a direct https:// dial and after a
// successful CONNECT tunnel (proxy.go). insecureSkipVerify is only ever
// true when the caller opted in via WithInsecureSkipVerify.
func (c *Connection) upgradeTLS(serverName string, insecureSkipVerify bool) error {
	tlsConn := tls.Client(c.netConn, &tls.Config{ServerName: serverName, InsecureSkipVerify: insecureSkipVerify})
	if err := tlsConn.Handshake(); err != nil {
		return wireerr.Connection("tls handshake", err)
	}
	c.netConn = tlsConn
	c.br = bufio.NewReader(c.netConn)
	c.bw = bufio.NewWriter(c.netConn)
	return nil
}

func (c *Connection) refreshIdleDeadline() {
	if c.keepAliveDur <= 0 {
		c.idleDeadline = time.Time{}
		return
	}
	c.idleDeadline = time.Now().Add(c.keepAliveDur)
}

// Close implements pool.Conn.
func (c *Connection) Close() error {
	if c.state == connClosed {
		return nil
	}
	c.state = connClosed
	return c.netConn.Close()
}

// Valid implements pool.Conn: not closed, and (if a keep-alive idle
// timer is configured) not past its idle deadline.
func (c *Connection) Valid() bool {
	if c.state == connClosed {
		return false
	}
	if !c.idleDeadline.IsZero() && time.Now().After(c.idleDeadline) {
		return false
	}
	return true
}

// Processed implements pool.Conn: how many request/response exchanges
// (including CONNECT tunnels) this socket has completed.
func (c *Connection) Processed() int { return c.processed }

// SetDeadline forwards to the underlying socket. The HttpClient pipeline
// does not call it; no per-request deadline is set on the socket.
func (c *Connection) SetDeadline(t time.Time) error {
	return c.netConn.SetDeadline(t)
}

// WriteRequestLine writes "METHOD request-uri VERSION\r\n".
func (c *Connection) WriteRequestLine(method, requestURI string, version Version) error {
	c.state = connWriting
	_, err := fmt.Fprintf(c.bw, "%s %s %s\r\n", method, requestURI, version)
	return err
}

// WriteHeaders writes each header line, then the blank line terminating
// the header block.
func (c *Connection) WriteHeaders(h *Headers) error {
	var err error
	h.Each(func(name, value string) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(c.bw, "%s: %s\r\n", name, value)
	})
	if err != nil {
		return err
	}
	_, err = c.bw.WriteString("\r\n")
	return err
}

// Flush pushes buffered bytes to the socket - callers call this after
// WriteHeaders (for EXPECT_WAIT) or after WriteBody.
func (c *Connection) Flush() error {
	return c.bw.Flush()
}

// WriteBody writes body directly (Content-Length framing already set in
// headers by the caller).
func (c *Connection) WriteBody(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	_, err := c.bw.Write(body)
	return err
}

// WriteChunkedBody writes body as a single chunk followed by the
// terminating zero-length chunk - sufficient for this client's own
// requests, which always have the whole body in memory up front.
func (c *Connection) WriteChunkedBody(body []byte) error {
	if len(body) > 0 {
		if _, err := fmt.Fprintf(c.bw, "%x\r\n", len(body)); err != nil {
			return err
		}
		if _, err := c.bw.Write(body); err != nil {
			return err
		}
		if _, err := c.bw.WriteString("\r\n"); err != nil {
			return err
		}
	}
	_, err := c.bw.WriteString("0\r\n\r\n")
	return err
}

// statusLine is the parsed first line of a response.
type statusLine struct {
	Version    string
	StatusCode int
	Reason     string
}

// ReadStatusLine parses "VERSION STATUS REASON\r\n".
func (c *Connection) ReadStatusLine() (statusLine, error) {
	c.state = connReadingHeaders
	line, err := c.readLine()
	if err != nil {
		return statusLine{}, wireerr.Connection("read status line", err)
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return statusLine{}, wireerr.Protocol("malformed status line: "+line, nil)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return statusLine{}, wireerr.Protocol("malformed status code: "+parts[1], err)
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return statusLine{Version: parts[0], StatusCode: code, Reason: reason}, nil
}

// ReadHeaders parses header lines until the terminating blank line.
func (c *Connection) ReadHeaders() (*Headers, error) {
	h := NewHeaders(ServerHeaders)
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, wireerr.Connection("read headers", err)
		}
		if line == "" {
			return h, nil
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, wireerr.Protocol("malformed header line: "+line, nil)
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		h.Add(name, value)
	}
}

func (c *Connection) readLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadBody reads the response body per the framing indicated by
// headers: Content-Length, Transfer-Encoding: chunked, or (lacking
// both, e.g. HTTP/1.0) connection-close-delimited.
func (c *Connection) ReadBody(h *Headers) ([]byte, error) {
	c.state = connReadingBody
	defer func() { c.state = connIdle }()

	if te, _ := h.Get("Transfer-Encoding"); strings.EqualFold(te, "chunked") {
		return c.readChunkedBody()
	}
	if cl, ok := h.Get("Content-Length"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil {
			return nil, wireerr.Protocol("malformed Content-Length: "+cl, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(c.br, buf); err != nil {
			return nil, wireerr.Connection("read body", err)
		}
		return buf, nil
	}
	// Connection-close-delimited: read until EOF, then the socket is
	// unusable for further requests regardless of what Connection
	// header said.
	buf, err := io.ReadAll(c.br)
	if err != nil {
		return nil, wireerr.Connection("read body", err)
	}
	return buf, nil
}

func (c *Connection) readChunkedBody() ([]byte, error) {
	var out []byte
	for {
		sizeLine, err := c.readLine()
		if err != nil {
			return nil, wireerr.Connection("read chunk size", err)
		}
		sizeLine = strings.SplitN(sizeLine, ";", 2)[0] // drop chunk extensions
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil {
			return nil, wireerr.Protocol("malformed chunk size: "+sizeLine, err)
		}
		if size == 0 {
			// trailer section, terminated by a blank line
			for {
				line, err := c.readLine()
				if err != nil {
					return nil, wireerr.Connection("read chunk trailer", err)
				}
				if line == "" {
					break
				}
			}
			return out, nil
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(c.br, buf); err != nil {
			return nil, wireerr.Connection("read chunk data", err)
		}
		out = append(out, buf...)
		if _, err := c.readLine(); err != nil { // trailing CRLF after chunk data
			return nil, wireerr.Connection("read chunk terminator", err)
		}
	}
}

// MarkProcessed increments the processed-exchange counter (spec 4.J).
func (c *Connection) MarkProcessed() {
	c.processed++
	c.state = connIdle
	c.refreshIdleDeadline()
}
