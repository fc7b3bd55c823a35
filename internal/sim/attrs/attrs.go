// Package attrs is the flat key/value tree block state is persisted through.
// Getters take a default so state saved by older versions still loads.
package attrs

import (
	"sort"
	"strconv"
)

type Tree map[string]string

func (t Tree) SetString(key, v string) { t[key] = v }

func (t Tree) SetInt(key string, v int64) { t[key] = strconv.FormatInt(v, 10) }

func (t Tree) SetFloat(key string, v float64) {
	t[key] = strconv.FormatFloat(v, 'g', -1, 64)
}

func (t Tree) SetBool(key string, v bool) { t[key] = strconv.FormatBool(v) }

func (t Tree) Has(key string) bool {
	_, ok := t[key]
	return ok
}

func (t Tree) GetString(key, def string) string {
	if v, ok := t[key]; ok {
		return v
	}
	return def
}

func (t Tree) GetInt(key string, def int64) int64 {
	v, ok := t[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func (t Tree) GetFloat(key string, def float64) float64 {
	v, ok := t[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func (t Tree) GetBool(key string, def bool) bool {
	v, ok := t[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Keys returns the keys in sorted order.
func (t Tree) Keys() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
