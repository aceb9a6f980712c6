package scoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const memoNamespace = "memo:"

// contentKey hashes the canonical JSON encoding of each part. Documents are
// decoded into typed structs first, so source key order never reaches the
// encoding.
func contentKey(parts ...any) string {
	h := xxhash.New()
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			_, _ = h.WriteString(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return ""
			}
			_, _ = h.Write(data)
		}
		_, _ = h.WriteString("\x1f")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// memoize returns the cached value for name/key or computes and stores it.
// Cache failures are logged and bypassed.
func memoize[T any](ctx context.Context, s *Scorer, name, key string, compute func() T) T {
	if s.cache == nil || key == "" {
		return compute()
	}

	ns := memoNamespace + name
	data, err := s.cache.Get(ctx, ns, key)
	if err != nil {
		slog.DebugContext(ctx, "memo read failed, recomputing", "extractor", name, "error", err)
	} else if data != nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached
		}
		slog.DebugContext(ctx, "memo entry unreadable, recomputing", "extractor", name)
	}

	value := compute()

	data, err = json.Marshal(value)
	if err != nil {
		slog.DebugContext(ctx, "memo encode failed", "extractor", name, "error", err)
		return value
	}
	if err := s.cache.Set(ctx, ns, key, data, s.memoTTL); err != nil {
		slog.DebugContext(ctx, "memo write failed", "extractor", name, "error", err)
	}
	return value
}
