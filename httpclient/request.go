package httpclient

import (
	"mime"
	"net/http"
	"slices"
)

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string
	// URL is the absolute request URL.
	URL string
	// Headers are request-specific headers (merged with client defaults).
	Headers map[string]string
	// BearerToken is sent as Authorization: Bearer when set.
	BearerToken string
	// ContentTypes, when set, lists the media types a 2xx answer may carry.
	ContentTypes []string
}

// Response is the result of an HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers http.Header
	// Body is the raw response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// MediaType returns the Content-Type without parameters.
func (r *Response) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.Headers.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// HasContentType reports whether the media type is one of valid.
func (r *Response) HasContentType(valid ...string) bool {
	return slices.Contains(valid, r.MediaType())
}
