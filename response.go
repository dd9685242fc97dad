package hammock

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/tidwall/gjson"
)

// Response is the transport's *http.Response with helpers for reading the
// body. The body is never altered; reading it through Bytes, Text, Get or
// DecodeJSON buffers it so that Body can still be read afterwards.
type Response struct {
	*http.Response

	once sync.Once
	body []byte
	err  error
}

// NewResponse wraps resp.
func NewResponse(resp *http.Response) *Response {
	return &Response{Response: resp}
}

// Bytes reads and buffers the whole body.
func (r *Response) Bytes() ([]byte, error) {
	r.once.Do(func() {
		if r.Response == nil || r.Body == nil {
			return
		}
		r.body, r.err = io.ReadAll(r.Body)
		r.Body.Close()

		// Restore the body for the caller
		r.Body = io.NopCloser(bytes.NewReader(r.body))
	})
	return r.body, r.err
}

// Text returns the body as a string.
func (r *Response) Text() (string, error) {
	body, err := r.Bytes()
	return string(body), err
}

// Get looks up a gjson path in a JSON body. A body that cannot be read yields
// an empty result.
func (r *Response) Get(path string) gjson.Result {
	body, err := r.Bytes()
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(body, path)
}

// DecodeJSON unmarshals a JSON body into v.
func (r *Response) DecodeJSON(v any) error {
	body, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
