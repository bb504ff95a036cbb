package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultPrefix starts every cache key.
const DefaultPrefix = "api"

// Key identifies the cached response of one page request.
type Key struct {
	// Service is the model the operation belongs to (e.g. "iam").
	Service string

	// Operation is the operation name (e.g. "ListUsers").
	Operation string

	// Params are the request parameters, pagination markers included.
	Params map[string]any
}

// String generates a deterministic key with the default prefix.
// Format: api:service:operation:paramhash
//
// Example:
//
//	api:iam:ListUsers:9f86d081884c7d65
func (k Key) String() string {
	return k.withPrefix(DefaultPrefix)
}

func (k Key) withPrefix(prefix string) string {
	parts := []string{prefix}
	if k.Service != "" {
		parts = append(parts, k.Service)
	}
	parts = append(parts, k.Operation)
	if len(k.Params) > 0 {
		parts = append(parts, k.ParamHash())
	}
	return strings.Join(parts, ":")
}

// ParamHash hashes the canonical JSON encoding of Params. Map keys are
// encoded in sorted order, so equal parameter sets hash equally.
func (k Key) ParamHash() string {
	data, err := json.Marshal(k.Params)
	if err != nil {
		// fmt prints maps with sorted keys.
		data = []byte(fmt.Sprintf("%v", k.Params))
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
