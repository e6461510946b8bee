package client

import (
	"net/url"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
)

// Request is one LegiScan API call: the operation plus its parameters.
// The API key is not part of a request; the client adds it when the URL
// is built.
type Request struct {
	Op     string
	Params map[string]string
}

// NewRequest builds a request from an operation and alternating
// name/value pairs. A trailing name without a value is ignored.
func NewRequest(op string, kv ...string) Request {
	params := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		params[kv[i]] = kv[i+1]
	}
	return Request{Op: op, Params: params}
}

// Values returns the query parameters of the request, including op.
func (r Request) Values() url.Values {
	v := make(url.Values, len(r.Params)+1)
	for name, value := range r.Params {
		v.Set(name, value)
	}
	if r.Op != "" {
		v.Set("op", r.Op)
	}
	return v
}

// CacheKey returns the canonical cache key of the request.
func (r Request) CacheKey() (string, error) {
	return cache.KeyFromValues(r.Values())
}

// RequestFromQuery parses a raw query string (as sent to the LegiScan API)
// into a request. The auth parameter is dropped.
func RequestFromQuery(rawQuery string) (Request, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Request{}, err
	}

	req := Request{Op: values.Get("op"), Params: make(map[string]string, len(values))}
	for name, vs := range values {
		if name == "op" || name == cache.AuthParam || len(vs) == 0 {
			continue
		}
		req.Params[name] = vs[len(vs)-1]
	}
	return req, nil
}
