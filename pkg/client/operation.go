package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Operation binds an operation name to an HTTP endpoint.
type Operation struct {
	// Name is the operation name used by the pagination model (e.g. "ListUsers").
	Name string `mapstructure:"name" json:"name" yaml:"name"`

	// Method is the HTTP method, GET when empty.
	Method string `mapstructure:"method" json:"method" yaml:"method"`

	// Path is appended to the base URL. "{Param}" segments are filled from
	// the request parameters of the same name.
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

func (op Operation) method() string {
	if op.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(op.Method)
}

// sendsBody reports whether parameters travel in a JSON body rather than
// the query string.
func (op Operation) sendsBody() bool {
	switch op.method() {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return false
	default:
		return true
	}
}

// newRequest renders params into an HTTP request for op.
func (op Operation) newRequest(ctx context.Context, baseURL string, params map[string]any) (*http.Request, error) {
	path, rest, err := expandPath(op.Path, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.Name, err)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op.Name, err)
	}

	if !op.sendsBody() {
		query, err := encodeQuery(rest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op.Name, err)
		}
		u.RawQuery = query.Encode()
		req, err := http.NewRequestWithContext(ctx, op.method(), u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		return req, nil
	}

	body, err := json.Marshal(rest)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op.Name, err)
	}
	req, err := http.NewRequestWithContext(ctx, op.method(), u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// expandPath substitutes "{Name}" segments and returns the parameters that
// were not consumed.
func expandPath(path string, params map[string]any) (string, map[string]any, error) {
	rest := maps.Clone(params)
	if rest == nil {
		rest = map[string]any{}
	}

	var b strings.Builder
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			b.WriteString(path)
			break
		}
		end := strings.IndexByte(path[open:], '}')
		if end < 0 {
			return "", nil, fmt.Errorf("unterminated path parameter in %q", path)
		}
		name := path[open+1 : open+end]
		value, ok := rest[name]
		if !ok {
			return "", nil, fmt.Errorf("missing path parameter %q", name)
		}
		s, err := cast.ToStringE(value)
		if err != nil {
			return "", nil, fmt.Errorf("path parameter %q: %w", name, err)
		}
		delete(rest, name)
		b.WriteString(path[:open])
		b.WriteString(url.PathEscape(s))
		path = path[open+end+1:]
	}
	return b.String(), rest, nil
}

// encodeQuery flattens params into query values. Lists repeat the key;
// objects are sent as JSON.
func encodeQuery(params map[string]any) (url.Values, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := url.Values{}
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []any:
			for _, item := range v {
				s, err := cast.ToStringE(item)
				if err != nil {
					return nil, fmt.Errorf("query parameter %q: %w", k, err)
				}
				query.Add(k, s)
			}
		case []string:
			for _, item := range v {
				query.Add(k, item)
			}
		case map[string]any:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("query parameter %q: %w", k, err)
			}
			query.Set(k, string(data))
		default:
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, fmt.Errorf("query parameter %q: %w", k, err)
			}
			query.Set(k, s)
		}
	}
	return query, nil
}
