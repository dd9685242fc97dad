package hammock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"net/http"
	"slices"

	"github.com/TwoApart/hammock/internal/singleflight"
)

// bufferedResponse is a response whose body has been read so that it can be
// handed to every caller of a coalesced request.
type bufferedResponse struct {
	resp *http.Response
	body []byte
}

func (b *bufferedResponse) clone() *http.Response {
	resp := *b.resp
	resp.Header = b.resp.Header.Clone()
	resp.Body = io.NopCloser(bytes.NewReader(b.body))
	return &resp
}

// deduplicator merges concurrent identical requests into one round trip.
type deduplicator struct {
	group *singleflight.Group[*bufferedResponse]
}

func newDeduplicator() *deduplicator {
	return &deduplicator{group: singleflight.New[*bufferedResponse]()}
}

// do sends the request through fn unless an identical one is in flight, in
// which case it waits for that one. shared reports whether the result was
// produced for another caller too. A waiter whose own context is still live
// does not inherit the cancellation of the request it waited on; it sends
// again instead.
func (d *deduplicator) do(req *http.Request, fn func(*http.Request) (*http.Response, error)) (resp *http.Response, shared bool, err error) {
	ctx := req.Context()
	key := deduplicationKey(req)

	for {
		ran := false
		buffered, err, shared := d.group.Do(ctx, key, func() (*bufferedResponse, error) {
			ran = true
			resp, err := fn(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			return &bufferedResponse{resp: resp, body: body}, nil
		})
		if err != nil && !ran && ctx.Err() == nil && isContextError(err) {
			continue
		}
		if err != nil {
			return nil, shared, err
		}
		return buffered.clone(), shared, nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// deduplicatable reports whether req may share a round trip with others:
// only safe methods without a body qualify.
func deduplicatable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return req.Body == nil || req.Body == http.NoBody
	default:
		return false
	}
}

// deduplicationKey builds a key from method, URL and headers. Every field is
// length prefixed so that distinct requests never hash the same input.
func deduplicationKey(req *http.Request) string {
	h := sha256.New()
	writeField(h, req.Method)
	writeField(h, req.URL.String())

	keys := make([]string, 0, len(req.Header))
	for key := range req.Header {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		values := req.Header[key]
		writeField(h, key)
		writeLength(h, len(values))
		for _, value := range values {
			writeField(h, value)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	writeLength(h, len(s))
	io.WriteString(h, s)
}

func writeLength(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
