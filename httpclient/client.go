package httpclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joeycumines/go-evhttp/evloop"
	"github.com/joeycumines/go-evhttp/internal/multipart"
	"github.com/joeycumines/go-evhttp/internal/wireerr"
	"github.com/joeycumines/go-evhttp/pool"
)

const defaultUserAgent = "go-evhttp"

// clientOptions holds HttpClient configuration resolved at construction,
// following the same functional-options idiom as evloop.Option
// (evloop/options.go) rather than introducing a second configuration
// style for this package.
type clientOptions struct {
	logger             evloop.Logger
	poolSize           int
	maxRedirects       int
	proxyInfo          ProxyInfo
	keepAliveIdle      time.Duration
	userAgent          string
	storeCookies       bool
	insecureSkipVerify bool
}

// ClientOption configures an HttpClient.
type ClientOption interface{ applyClient(*clientOptions) }

type clientOptionFunc func(*clientOptions)

func (f clientOptionFunc) applyClient(o *clientOptions) { f(o) }

func WithClientLogger(logger evloop.Logger) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.logger = logger })
}

func WithPoolSize(n int) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.poolSize = n })
}

func WithMaxRedirects(n int) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.maxRedirects = n })
}

func WithProxyInfo(p ProxyInfo) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.proxyInfo = p })
}

func WithKeepAliveIdle(d time.Duration) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.keepAliveIdle = d })
}

func WithUserAgent(ua string) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.userAgent = ua })
}

// WithStoreCookies controls whether Set-Cookie responses are persisted
// into the client jar by default (spec 4.G `store_cookies`).
func WithStoreCookies(store bool) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.storeCookies = store })
}

// WithInsecureSkipVerify disables TLS certificate verification for every
// https:// dial this client makes. Only ever reachable through this
// explicit option - never a default - since it defeats the point of TLS.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return clientOptionFunc(func(o *clientOptions) { o.insecureSkipVerify = skip })
}

func resolveClientOptions(opts []ClientOption) *clientOptions {
	cfg := &clientOptions{
		poolSize:     6,
		maxRedirects: 10,
		userAgent:    defaultUserAgent,
		storeCookies: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyClient(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = evloop.NewLogger(nil)
	}
	return cfg
}

// HttpClient is the pooled HTTP/1.x client pipeline (spec component G):
// one ConnectionPool per origin key, a shared CookieJar, and optional
// basic/digest credentials, all driven by a single EventLoop.
type HttpClient struct {
	loop   *evloop.EventLoop
	logger evloop.Logger

	poolSize      int
	maxRedirects  int
	proxyInfo     ProxyInfo
	keepAliveIdle time.Duration
	userAgent     string
	storeCookies  bool

	insecureSkipVerify bool

	jar  *CookieJar
	auth *AuthConfig

	pools map[pool.Key]*pool.Pool[*Connection, HttpClient]
}

// NewClient constructs an HttpClient bound to loop.
func NewClient(loop *evloop.EventLoop, opts ...ClientOption) *HttpClient {
	cfg := resolveClientOptions(opts)
	return &HttpClient{
		loop:               loop,
		logger:             cfg.logger,
		poolSize:           cfg.poolSize,
		maxRedirects:       cfg.maxRedirects,
		proxyInfo:          cfg.proxyInfo,
		keepAliveIdle:      cfg.keepAliveIdle,
		userAgent:          cfg.userAgent,
		storeCookies:       cfg.storeCookies,
		insecureSkipVerify: cfg.insecureSkipVerify,
		jar:                NewCookieJar(),
		pools:              make(map[pool.Key]*pool.Pool[*Connection, HttpClient]),
	}
}

// AddBasicAuthentication registers Basic credentials used on AUTH_RETRY.
func (c *HttpClient) AddBasicAuthentication(username, password string) {
	c.auth = &AuthConfig{Scheme: AuthBasic, Username: username, Password: password}
}

// AddDigestAuthentication registers Digest credentials used on
// AUTH_RETRY.
func (c *HttpClient) AddDigestAuthentication(username, password string) {
	c.auth = &AuthConfig{Scheme: AuthDigest, Username: username, Password: password}
}

// RequestConfig captures spec 4.G's recognized per-request options.
type RequestConfig struct {
	Headers         map[string]string
	Data            map[string]string
	Files           []multipart.File
	EncodeMultipart bool
	Cookies         map[string]string
	MaxRedirects    int
	Timeout         time.Duration
	WaitContinue    bool
	PreRequest      func(*Request)
	OnHeaders       func(*Response)
	StoreCookies    *bool
	Version         Version
	ProxyInfo       ProxyInfo
	PoolSize        int
}

// RequestOption mutates a RequestConfig; the functional-options pattern
// extended to per-call request configuration.
type RequestOption func(*RequestConfig)

func Header(name, value string) RequestOption {
	return func(c *RequestConfig) {
		if c.Headers == nil {
			c.Headers = map[string]string{}
		}
		c.Headers[name] = value
	}
}

func Data(data map[string]string) RequestOption {
	return func(c *RequestConfig) { c.Data = data }
}

// RequestCookies sets per-request cookie pairs, merged onto (and taking
// precedence over on a name collision with) the jar's cookies for this
// call only (spec 4.G `cookies` option).
func RequestCookies(pairs map[string]string) RequestOption {
	return func(c *RequestConfig) { c.Cookies = pairs }
}

func Files(files []multipart.File) RequestOption {
	return func(c *RequestConfig) { c.Files = files; c.EncodeMultipart = true }
}

func MaxRedirects(n int) RequestOption {
	return func(c *RequestConfig) { c.MaxRedirects = n }
}

// Timeout records d in RequestConfig.Timeout. buildRequest does not carry
// it onto the Request, so no deadline is applied to the exchange.
func Timeout(d time.Duration) RequestOption {
	return func(c *RequestConfig) { c.Timeout = d }
}

func WaitContinue() RequestOption {
	return func(c *RequestConfig) { c.WaitContinue = true }
}

func PreRequest(fn func(*Request)) RequestOption {
	return func(c *RequestConfig) { c.PreRequest = fn }
}

func OnHeaders(fn func(*Response)) RequestOption {
	return func(c *RequestConfig) { c.OnHeaders = fn }
}

func StoreCookies(store bool) RequestOption {
	return func(c *RequestConfig) { c.StoreCookies = &store }
}

func RequestVersion(v Version) RequestOption {
	return func(c *RequestConfig) { c.Version = v }
}

// RequestProxyInfo overrides the client's default proxy map for this
// request only (spec 4.G `proxy_info` option).
func RequestProxyInfo(p ProxyInfo) RequestOption {
	return func(c *RequestConfig) { c.ProxyInfo = p }
}

// RequestPoolSize overrides the client's default connection pool
// capacity for this request's origin (spec 4.G `pool_size` option).
func RequestPoolSize(n int) RequestOption {
	return func(c *RequestConfig) { c.PoolSize = n }
}

func (c *HttpClient) buildRequest(method, rawURL string, opts []RequestOption) (*Request, error) {
	cfg := &RequestConfig{Version: HTTP11, MaxRedirects: c.maxRedirects}
	for _, opt := range opts {
		opt(cfg)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, wireerr.Protocol("invalid URL: "+rawURL, err)
	}

	var body []byte
	headers := NewHeaders(ClientHeaders)
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	switch {
	case len(cfg.Files) > 0 || (cfg.EncodeMultipart && len(cfg.Data) > 0):
		encoded, contentType, err := multipart.Encode(cfg.Data, cfg.Files)
		if err != nil {
			return nil, err
		}
		body = encoded
		headers.Set("Content-Type", contentType)
	case len(cfg.Data) > 0 && (method == "GET" || method == "HEAD"):
		q := u.Query()
		for k, v := range cfg.Data {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	case len(cfg.Data) > 0:
		form := url.Values{}
		for k, v := range cfg.Data {
			form.Set(k, v)
		}
		body = []byte(form.Encode())
		headers.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	storeCookies := c.storeCookies
	if cfg.StoreCookies != nil {
		storeCookies = *cfg.StoreCookies
	}

	req := &Request{
		Method:              method,
		URL:                 u,
		Headers:             headers,
		UnredirectedHeaders: NewHeaders(ClientHeaders),
		Body:                body,
		MaxRedirects:        cfg.MaxRedirects,
		Version:             cfg.Version,
		WaitContinue:        cfg.WaitContinue,
		PreRequest:          cfg.PreRequest,
		OnHeaders:           cfg.OnHeaders,
		StoreCookies:        storeCookies,
		PoolSize:            cfg.PoolSize,
		ProxyInfo:           cfg.ProxyInfo,
	}

	if len(cfg.Cookies) > 0 {
		req.UnredirectedHeaders.Set("Cookie", encodeCookiePairs(cfg.Cookies))
	}

	return req, nil
}

func encodeCookiePairs(pairs map[string]string) string {
	var b strings.Builder
	for name, value := range pairs {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}
	return b.String()
}

func (c *HttpClient) Get(rawURL string, opts ...RequestOption) *evloop.Deferred[*Response] {
	return c.doMethod("GET", rawURL, opts)
}
func (c *HttpClient) Post(rawURL string, opts ...RequestOption) *evloop.Deferred[*Response] {
	return c.doMethod("POST", rawURL, opts)
}
func (c *HttpClient) Put(rawURL string, opts ...RequestOption) *evloop.Deferred[*Response] {
	return c.doMethod("PUT", rawURL, opts)
}
func (c *HttpClient) Patch(rawURL string, opts ...RequestOption) *evloop.Deferred[*Response] {
	return c.doMethod("PATCH", rawURL, opts)
}
func (c *HttpClient) Delete(rawURL string, opts ...RequestOption) *evloop.Deferred[*Response] {
	return c.doMethod("DELETE", rawURL, opts)
}
func (c *HttpClient) Head(rawURL string, opts ...RequestOption) *evloop.Deferred[*Response] {
	return c.doMethod("HEAD", rawURL, opts)
}
func (c *HttpClient) Options(rawURL string, opts ...RequestOption) *evloop.Deferred[*Response] {
	return c.doMethod("OPTIONS", rawURL, opts)
}

func (c *HttpClient) doMethod(method, rawURL string, opts []RequestOption) *evloop.Deferred[*Response] {
	req, err := c.buildRequest(method, rawURL, opts)
	if err != nil {
		return evloop.Rejected[*Response](err)
	}
	return c.Do(req)
}

// Bench is the result of Timeit: spec 4.J, the original library's
// timeit/bench tooling.
type Bench struct {
	Taken  time.Duration
	Result []*Response
}

// Timeit issues N sequential requests (awaiting each response before
// issuing the next, so connection reuse - not contention - is what gets
// measured, per spec 4.J) and reports elapsed wall time.
func (c *HttpClient) Timeit(method string, n int, rawURL string, opts ...RequestOption) *evloop.Deferred[*Bench] {
	out := evloop.NewDeferred[*Bench]()
	start := time.Now()
	results := make([]*Response, 0, n)

	var step func(i int)
	step = func(i int) {
		if i >= n {
			out.Resolve(&Bench{Taken: time.Since(start), Result: results})
			return
		}
		c.doMethod(method, rawURL, opts).OnDone(func(r *Response, err error) {
			if err != nil {
				out.Reject(err)
				return
			}
			results = append(results, r)
			step(i + 1)
		})
	}
	step(0)
	return out
}

func (c *HttpClient) poolFor(req *Request, proxyKey string) *pool.Pool[*Connection, HttpClient] {
	key := req.Key(proxyKey)
	p, ok := c.pools[key]
	if ok {
		return p
	}
	size := c.poolSize
	if req.PoolSize > 0 {
		size = req.PoolSize
	}
	useTLS := req.URL.Scheme == "https" || req.URL.Scheme == "wss"
	host := req.URL.Hostname()
	port := portOf(req.URL)
	if proxy := c.proxyFor(req); proxy != nil {
		// Through a proxy the socket goes to the proxy itself; TLS to the
		// target, if any, is set up later by connectTunnel.
		host, port, useTLS = proxy.Hostname(), portOf(proxy), false
	}
	dial := func() (*Connection, error) {
		return dialConnection(host, port, useTLS, c.keepAliveIdle, c.insecureSkipVerify)
	}
	p = pool.New[*Connection](c.loop, c.logger, key, size, dial, c)
	c.pools[key] = p
	return p
}

func (c *HttpClient) proxyFor(req *Request) *url.URL {
	if req.ProxyInfo != nil {
		return req.ProxyInfo.proxyFor(req.URL.Scheme)
	}
	return c.proxyInfo.proxyFor(req.URL.Scheme)
}

// Do drives one Request through the full pipeline described by spec
// 4.G: RESOLVE, optional PROXY_CONNECT, WRITE_HEADERS, optional
// EXPECT_WAIT, WRITE_BODY, READ_HEADERS, and then AUTH_RETRY / REDIRECT
// / DELIVER, finally RELEASE.
func (c *HttpClient) Do(req *Request) *evloop.Deferred[*Response] {
	out := evloop.NewDeferred[*Response]()
	c.runAttempt(req, nil, out)
	return out
}

func (c *HttpClient) runAttempt(req *Request, history []*Response, out *evloop.Deferred[*Response]) {
	if req.PreRequest != nil {
		runProtectedHook(c.logger, "pre_request", func() { req.PreRequest(req) })
	}

	proxy := c.proxyFor(req)
	proxyKey := ""
	if proxy != nil {
		proxyKey = proxy.String()
	}
	p := c.poolFor(req, proxyKey)

	p.Acquire().OnDone(func(conn *Connection, err error) {
		if err != nil {
			out.Reject(wireerr.Connection("acquire", err))
			return
		}
		c.applyDefaultHeaders(req)
		c.loop.RunInExecutor(func() (any, error) {
			return c.exchange(conn, req, proxy)
		}).OnDone(func(v any, err error) {
			if err != nil {
				p.Release(conn, false)
				out.Reject(err)
				return
			}
			resp := v.(*Response)
			resp.History = history
			resp.Request = req

			reusable := c.shouldReuse(req, resp)
			p.Release(conn, reusable)

			c.afterExchange(req, resp, history, out)
		})
	})
}

// exchange performs the blocking socket I/O for one request/response
// pair on the loop's executor pool - this client drives suspension
// through RunInExecutor rather than registering each HTTP socket with
// the loop's multiplexer fd-by-fd; see DESIGN.md for why this
// simplification was chosen for the scope of this pass.
func (c *HttpClient) exchange(conn *Connection, req *Request, proxy *url.URL) (*Response, error) {
	tunneled := false
	if proxy != nil && (req.URL.Scheme == "https" || req.URL.Scheme == "wss") && conn.Processed() == 0 {
		if err := connectTunnel(conn, req.URL.Hostname(), portOf(req.URL), c.insecureSkipVerify); err != nil {
			return nil, err
		}
		tunneled = true
	}

	uri := requestURIFor(req, proxy, tunneled)
	if err := conn.WriteRequestLine(req.Method, uri, req.Version); err != nil {
		return nil, wireerr.Connection("write request line", err)
	}

	merged := mergeHeaders(req.Headers, req.UnredirectedHeaders)
	useChunked := len(req.Body) > 0 && !merged.Has("Content-Length")
	if len(req.Body) > 0 {
		if useChunked && req.Version == HTTP11 {
			merged.Set("Transfer-Encoding", "chunked")
		} else {
			merged.Set("Content-Length", fmt.Sprintf("%d", len(req.Body)))
		}
	}
	if req.WaitContinue && len(req.Body) > 0 && req.Version == HTTP11 {
		merged.Set("Expect", "100-continue")
	}

	if err := conn.WriteHeaders(merged); err != nil {
		return nil, wireerr.Connection("write headers", err)
	}

	if req.WaitContinue && len(req.Body) > 0 && req.Version == HTTP11 {
		if err := conn.Flush(); err != nil {
			return nil, wireerr.Connection("flush", err)
		}
		status, err := conn.ReadStatusLine()
		if err != nil {
			return nil, err
		}
		if status.StatusCode != 100 {
			headers, err := conn.ReadHeaders()
			if err != nil {
				return nil, err
			}
			body, _ := conn.ReadBody(headers)
			conn.MarkProcessed()
			return &Response{StatusCode: status.StatusCode, Reason: status.Reason, Headers: headers, body: body, Connection: conn}, nil
		}
		// The interim 100 response has its own header block, ended by a
		// blank line, which must be consumed before the final response.
		if _, err := conn.ReadHeaders(); err != nil {
			return nil, err
		}
	}

	if len(req.Body) > 0 {
		var err error
		if useChunked && req.Version == HTTP11 {
			err = conn.WriteChunkedBody(req.Body)
		} else {
			err = conn.WriteBody(req.Body)
		}
		if err != nil {
			return nil, wireerr.Connection("write body", err)
		}
	}
	if err := conn.Flush(); err != nil {
		return nil, wireerr.Connection("flush", err)
	}

	status, err := conn.ReadStatusLine()
	if err != nil {
		return nil, err
	}
	headers, err := conn.ReadHeaders()
	if err != nil {
		return nil, err
	}

	resp := &Response{StatusCode: status.StatusCode, Reason: status.Reason, Headers: headers, Connection: conn}

	if req.OnHeaders != nil {
		runProtectedHook(c.logger, "on_headers", func() { req.OnHeaders(resp) })
	}

	if req.Method != "HEAD" {
		body, err := conn.ReadBody(headers)
		if err != nil {
			return nil, err
		}
		resp.body = body
	}
	conn.MarkProcessed()
	return resp, nil
}

func mergeHeaders(primary, overlay *Headers) *Headers {
	merged := primary.Clone()
	overlay.Each(func(name, value string) {
		if !merged.Has(name) {
			merged.Add(name, value)
		}
	})
	return merged
}

func (c *HttpClient) applyDefaultHeaders(req *Request) {
	if !req.HasHeader("Host") {
		req.Headers.Set("Host", req.URL.Host)
	}
	if !req.HasHeader("User-Agent") {
		req.Headers.Set("User-Agent", c.userAgent)
	}
	if !req.HasHeader("Accept-Encoding") {
		req.Headers.Set("Accept-Encoding", "gzip, deflate")
	}
	if !req.HasHeader("Connection") {
		if req.Version == HTTP11 {
			req.Headers.Set("Connection", "keep-alive")
		} else {
			req.Headers.Set("Connection", "close")
		}
	}

	now := time.Now()
	cookies := c.jar.CookiesFor(req.URL.Hostname(), req.URL.Path, now)
	if len(cookies) == 0 {
		return
	}
	var b strings.Builder
	if existing, ok := req.UnredirectedHeaders.Get("Cookie"); ok && existing != "" {
		// Per-request cookies (the RequestCookies option) take precedence over
		// the jar for a name collision, since they were set explicitly for
		// this call.
		b.WriteString(existing)
	}
	present := existingCookieNames(b.String())
	for _, ck := range cookies {
		if present[ck.Name] {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ck.Name)
		b.WriteByte('=')
		b.WriteString(ck.Value)
	}
	req.UnredirectedHeaders.Set("Cookie", b.String())
}

// existingCookieNames parses a "name=value; name2=value2" Cookie header
// value into a set of its cookie names, for an exact-name collision check
// (a substring check would wrongly skip e.g. "session" because
// "anothersession" already appears in the header).
func existingCookieNames(header string) map[string]bool {
	names := make(map[string]bool)
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		names[strings.TrimSpace(name)] = true
	}
	return names
}

func (c *HttpClient) shouldReuse(req *Request, resp *Response) bool {
	connHeader, _ := resp.Headers.Get("Connection")
	if strings.EqualFold(connHeader, "close") {
		return false
	}
	if req.Version == HTTP10 && !strings.EqualFold(connHeader, "keep-alive") {
		return false
	}
	_, hasLength := resp.Headers.Get("Content-Length")
	te, _ := resp.Headers.Get("Transfer-Encoding")
	if req.Method != "HEAD" && !hasLength && !strings.EqualFold(te, "chunked") {
		// Body was delimited by connection close (see Connection.ReadBody).
		return false
	}
	return true
}

func (c *HttpClient) afterExchange(req *Request, resp *Response, history []*Response, out *evloop.Deferred[*Response]) {
	if req.StoreCookies {
		for _, v := range resp.Headers.Values("Set-Cookie") {
			c.jar.Store(req.URL.Hostname(), v)
		}
	}

	if resp.StatusCode == 401 && c.auth != nil && req.RedirectCount == 0 {
		if next := c.buildAuthRetry(req, resp); next != nil {
			c.runAttempt(next, history, out)
			return
		}
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc, ok := resp.Headers.Get("Location"); ok {
			if req.RedirectCount >= req.MaxRedirects {
				partial := &Response{History: append([]*Response{}, history...)}
				out.Reject(&TooManyRedirectsError{
					Response: partial,
					inner:    &wireerr.TooManyRedirectsError{Response: partial},
				})
				return
			}
			next, err := c.buildRedirect(req, resp, loc)
			if err != nil {
				out.Reject(err)
				return
			}
			hist := append(append([]*Response{}, history...), resp)
			c.runAttempt(next, hist, out)
			return
		}
	}

	out.Resolve(resp)
}

func (c *HttpClient) buildRedirect(req *Request, resp *Response, location string) (*Request, error) {
	target, err := req.URL.Parse(location)
	if err != nil {
		return nil, wireerr.Protocol("invalid redirect Location: "+location, err)
	}
	crossOrigin := target.Hostname() != req.URL.Hostname()
	method := req.Method
	if resp.StatusCode == 303 || (resp.StatusCode == 302 && method == "POST") {
		method = "GET"
	}
	next := req.cloneForFollowUp(method, target, crossOrigin)
	next.RedirectCount = req.RedirectCount + 1
	return next, nil
}

func (c *HttpClient) buildAuthRetry(req *Request, resp *Response) *Request {
	challengeHeader, ok := resp.Headers.Get("WWW-Authenticate")
	if !ok {
		return nil
	}

	next := req.cloneForFollowUp(req.Method, req.URL, false)
	next.RedirectCount = req.RedirectCount + 1 // reuse the counter to bound a single retry

	switch c.auth.Scheme {
	case AuthBasic:
		if !strings.HasPrefix(strings.ToLower(challengeHeader), "basic") {
			return nil
		}
		next.UnredirectedHeaders.Set("Authorization", basicAuthorization(c.auth.Username, c.auth.Password))
	case AuthDigest:
		if !strings.HasPrefix(strings.ToLower(challengeHeader), "digest") {
			return nil
		}
		auth, err := c.auth.digestAuthorization(challengeHeader, req.Method, requestURIFor(req, nil, false))
		if err != nil {
			logError(c.logger, "digest-auth", err)
			return nil
		}
		next.UnredirectedHeaders.Set("Authorization", auth)
	default:
		return nil
	}
	return next
}

func runProtectedHook(logger evloop.Logger, where string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logExceptionFromClient(logger, where, r)
		}
	}()
	fn()
}
