// Package httpclient is a feature-rich HTTP/1.x client (spec component G)
// built on top of [pool.Pool] and driven by an [evloop.EventLoop]: per-origin
// connection pooling, HTTP/1.0 and HTTP/1.1 wire semantics, keep-alive,
// chunked transfer encoding, Expect: 100-continue, redirect chains with
// history, a cookie jar, Basic/Digest auth retry, and HTTP(S) proxy
// traversal including CONNECT tunnelling.
//
// # Usage
//
//	loop, _ := evloop.New()
//	client := httpclient.NewClient(loop)
//	client.Get("http://example.test/").OnDone(func(resp *httpclient.Response, err error) {
//		if err != nil {
//			return
//		}
//		text, _ := resp.Text()
//		fmt.Println(resp.StatusCode, text)
//		loop.Stop()
//	})
//	loop.RunForever()
//
// Every method that issues a request - [HttpClient.Get], [HttpClient.Post],
// and friends, plus the lower-level [HttpClient.Do] - returns an
// [evloop.Deferred] rather than blocking, so the calling goroutine is always
// the loop's own; the blocking socket I/O itself runs on the loop's executor
// pool ([evloop.EventLoop.RunInExecutor]) and is handed back to the loop
// goroutine on completion.
package httpclient
