package cache

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidKey indicates request parameters that cannot be turned into a cache key.
var ErrInvalidKey = errors.New("invalid cache key")

const (
	// AuthParam is the query parameter carrying the API key. It never
	// contributes to a cache key.
	AuthParam = "key"

	// KeySeparator joins the parameter values of a key.
	KeySeparator = "/"
)

// leadingParams are placed first, in this order, when present.
var leadingParams = []string{"op", "state", "year"}

// KeyFromURL derives the cache key for a fully built request URL.
func KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: parse url: %v", ErrInvalidKey, err)
	}
	return KeyFromQuery(u.RawQuery)
}

// KeyFromQuery derives the cache key for a raw (still escaped) query string.
func KeyFromQuery(rawQuery string) (string, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("%w: decode query %q: %v", ErrInvalidKey, rawQuery, err)
	}
	return KeyFromValues(values)
}

// KeyFromValues derives a deterministic cache key from request parameters.
//
// The auth parameter is dropped. The values of op, state and year come first
// (when present), followed by the remaining values ordered by parameter name.
// Values are joined with KeySeparator and lower-cased, so the key does not
// depend on the order the parameters were sent in.
//
// Format: op/state/year/<rest by name>
//
// Example:
//
//	op=getBill&id=1234&key=secret -> getbill/1234
func KeyFromValues(values url.Values) (string, error) {
	params := make(map[string]string, len(values))
	for name, vals := range values {
		if name == AuthParam || len(vals) == 0 {
			continue
		}
		// Repeated parameters: last one wins
		params[name] = vals[len(vals)-1]
	}

	if len(params) == 0 {
		return "", fmt.Errorf("%w: no request parameters", ErrInvalidKey)
	}

	parts := make([]string, 0, len(params))
	for _, name := range leadingParams {
		if v, ok := params[name]; ok {
			parts = append(parts, v)
			delete(params, name)
		}
	}

	rest := make([]string, 0, len(params))
	for name := range params {
		rest = append(rest, name)
	}
	sort.Strings(rest)

	for _, name := range rest {
		parts = append(parts, params[name])
	}

	return strings.ToLower(strings.Join(parts, KeySeparator)), nil
}
