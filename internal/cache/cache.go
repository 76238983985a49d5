// Package cache stores rendered list responses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"time"
)

// Cache keeps response bodies by key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KeyParams identify one list response.
type KeyParams struct {
	Model   string
	View    string
	Display []string
	Limit   uint64
	Offset  uint64
}

// Key hashes the canonical JSON of p. Display order does not matter.
func Key(p KeyParams) (string, error) {
	display := slices.Clone(p.Display)
	sort.Strings(display)
	if display == nil {
		display = []string{}
	}
	data, err := canonicalJSON(map[string]any{
		"model":   p.Model,
		"view":    p.View,
		"display": display,
		"limit":   p.Limit,
		"offset":  p.Offset,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "display:" + hex.EncodeToString(sum[:]), nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error          { return nil }

// New builds the cache for backend ("none", "memory" or "redis").
func New(backend string, ttl time.Duration, maxBytes int64, rdb RedisClient) Cache {
	switch backend {
	case "memory":
		return NewMemory(ttl, maxBytes)
	case "redis":
		if rdb != nil {
			return NewRedis(rdb, ttl)
		}
	}
	return Noop{}
}

func canonicalJSON(value any) ([]byte, error) {
	var b strings.Builder
	if err := encodeCanonical(&b, value); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// encodeCanonical writes value as JSON with sorted object keys.
func encodeCanonical(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case []string:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(item)
			b.Write(enc)
		}
		b.WriteByte(']')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encKey, _ := json.Marshal(k)
			b.Write(encKey)
			b.WriteByte(':')
			if err := encodeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(enc)
	}
	return nil
}
