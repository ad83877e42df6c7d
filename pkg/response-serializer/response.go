// Package serializer converts in-memory responses to and from the
// representation stored in the cache.
package serializer

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// Response is a fully buffered response: status, headers and complete body.
// This is the unit of storage; a response whose body is still streaming can
// never be represented here.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// storedResponse is the JSON form of a response. The body is base64 encoded
// because it may not be valid text, e.g. a compressed payload.
type storedResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Content    string              `json:"content"`
}

// Encode serializes a response into a representation safe for a
// text-oriented store.
func Encode(res *Response) ([]byte, error) {
	return json.Marshal(storedResponse{
		StatusCode: res.StatusCode,
		Headers:    res.Header,
		Content:    base64.StdEncoding.EncodeToString(res.Body),
	})
}

// Decode is the exact inverse of Encode: status, headers and body bytes
// round-trip unchanged.
func Decode(value []byte) (*Response, error) {
	var stored storedResponse
	if err := json.Unmarshal(value, &stored); err != nil {
		return nil, err
	}
	body, err := base64.StdEncoding.DecodeString(stored.Content)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: stored.StatusCode,
		Header:     http.Header(stored.Headers),
		Body:       body,
	}, nil
}
