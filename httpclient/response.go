package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/json"
	"io"

	"github.com/joeycumines/go-evhttp/internal/wireerr"
)

// Response is the data model's Response: status line, headers, body, the
// Connection it arrived on, the request that produced it, and the
// ordered history of prior responses in a redirect chain (never
// including the current response - spec invariant).
type Response struct {
	Request    *Request
	StatusCode int
	Reason     string
	Headers    *Headers

	body []byte

	Connection *Connection
	Cookies    []Cookie
	History    []*Response
}

// Bytes decompresses (gzip/deflate, per the Content-Encoding header) and
// returns the response body - the source's get_content().
func (r *Response) Bytes() ([]byte, error) {
	enc, _ := r.Headers.Get("Content-Encoding")
	switch enc {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(r.body))
		if err != nil {
			return nil, wireerr.Protocol("gzip decode", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		zr := flate.NewReader(bytes.NewReader(r.body))
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return r.body, nil
	}
}

// Text decodes the body as UTF-8 text after content-decoding - the
// source's decode_content().
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// JSON decodes the content-decoded body into v - the source's json().
func (r *Response) JSON(v any) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// RaiseForStatus fails with HTTPError when StatusCode falls outside
// [200,400), per spec 4.G.
func (r *Response) RaiseForStatus() error {
	if r.StatusCode >= 200 && r.StatusCode < 400 {
		return nil
	}
	return &wireerr.HTTPError{StatusCode: r.StatusCode, Status: r.Reason}
}
