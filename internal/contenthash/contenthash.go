// Package contenthash computes order-independent digests of content block
// components so duplicate submissions under one topic can be detected.
package contenthash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Canonical renders a decoded JSON value as a stable string. Object keys are
// sorted, strings are trimmed and nil renders as the empty string.
func Canonical(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

// Sum returns the lowercase hex SHA-256 of Canonical(v).
func Sum(v any) string {
	sum := sha256.Sum256([]byte(Canonical(v)))
	return hex.EncodeToString(sum[:])
}

func writeCanonical(b *strings.Builder, v any) {
	switch value := v.(type) {
	case nil:
	case string:
		b.WriteString(strings.TrimSpace(value))
	case bool:
		b.WriteString(strconv.FormatBool(value))
	case json.Number:
		b.WriteString(formatNumber(value))
	case float64:
		b.WriteString(formatFloat(value))
	case float32:
		b.WriteString(formatFloat(float64(value)))
	case int:
		b.WriteString(strconv.Itoa(value))
	case int64:
		b.WriteString(strconv.FormatInt(value, 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(value), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(value, 10))
	case json.RawMessage:
		decoded, err := decode(value)
		if err != nil {
			b.WriteString(strings.TrimSpace(string(value)))
			return
		}
		writeCanonical(b, decoded)
	case []any:
		b.WriteByte('[')
		for i, item := range value {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case []map[string]any:
		items := make([]any, len(value))
		for i := range value {
			items[i] = value[i]
		}
		writeCanonical(b, items)
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(key)
			b.WriteByte(':')
			writeCanonical(b, value[key])
		}
		b.WriteByte('}')
	default:
		fmt.Fprint(b, value)
	}
}

// formatNumber renders numeric literals the way their float value prints, so
// 1, 1.0 and 1e0 canonicalize identically.
func formatNumber(n json.Number) string {
	if f, err := n.Float64(); err == nil {
		return formatFloat(f)
	}
	return n.String()
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func decode(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	return value, nil
}
