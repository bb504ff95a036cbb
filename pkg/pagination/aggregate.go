package pagination

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
)

// NextTokenKey is the key BuildFullResult stores the resume token under.
const NextTokenKey = "NextToken"

// BuildFullResult drains the iterator and folds every page into one document.
//
// List result keys are concatenated in page order, numbers are summed and
// strings concatenated; objects keep the first page's value. Pages without a
// key contribute nothing. The non-aggregate part is merged in, and NextToken
// is set when the run stopped on its MaxItems budget.
func (it *PageIterator) BuildFullResult(ctx context.Context) (map[string]any, error) {
	result := make(map[string]any)
	for page, err := range it.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		for _, key := range it.config.ResultKey {
			value := key.Search(page)
			if value == nil {
				continue
			}
			existing := key.Search(result)
			if existing == nil {
				if err := key.Set(result, cloneValue(value)); err != nil {
					return nil, fmt.Errorf("result key %s: %w", key, err)
				}
				continue
			}
			if merged, ok := combine(existing, value); ok {
				if err := key.Set(result, merged); err != nil {
					return nil, fmt.Errorf("result key %s: %w", key, err)
				}
			}
		}
	}
	mergeInto(result, it.nonAggregate)
	if it.resumeToken != "" {
		result[NextTokenKey] = it.resumeToken
	}
	return result, nil
}

// combine folds value into existing. It reports false when the pair cannot
// be combined and existing should stay as it is.
func combine(existing, value any) (any, bool) {
	switch e := existing.(type) {
	case []any:
		if v, ok := value.([]any); ok {
			return append(e, v...), true
		}
		return nil, false
	case string:
		if v, ok := value.(string); ok {
			return e + v, true
		}
		return nil, false
	}
	if isNumber(existing) && isNumber(value) {
		return addNumbers(existing, value), true
	}
	return nil, false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// addNumbers keeps integer results integral and falls back to float64.
func addNumbers(a, b any) any {
	ai, aInt := a.(int)
	bi, bInt := b.(int)
	if aInt && bInt {
		return ai + bi
	}
	if a64, err := cast.ToInt64E(a); err == nil && !isFloat(a) {
		if b64, err := cast.ToInt64E(b); err == nil && !isFloat(b) {
			return a64 + b64
		}
	}
	return cast.ToFloat64(a) + cast.ToFloat64(b)
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	default:
		return false
	}
}

// cloneValue copies lists and objects so aggregation never writes into a page.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		copy(out, t)
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// mergeInto deep-merges src into dst, with src winning on conflicts.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeInto(dstMap, srcMap)
			continue
		}
		dst[k] = cloneValue(v)
	}
}
