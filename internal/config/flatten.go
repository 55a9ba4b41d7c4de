package config

import (
	"fmt"
	"strings"
)

// IsSecretKey reports whether a dot-separated key holds a credential:
// any "*.token" and calendar.credentials_json.
func IsSecretKey(key string) bool {
	leaf := key[strings.LastIndexByte(key, '.')+1:]
	return leaf == "token" || leaf == "credentials_json"
}

// Flatten turns {"notify": {"recipient": "51..."}} into {"notify.recipient": "51..."}.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten is the inverse of Flatten. A scalar in the way of a nested key
// is replaced by a map.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		setPath(out, k, v)
	}
	return out
}

func setPath(m map[string]any, key string, v any) {
	head, rest, nested := strings.Cut(key, ".")
	if !nested {
		m[head] = v
		return
	}
	child, ok := m[head].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[head] = child
	}
	setPath(child, rest, v)
}

// MaskSecrets returns a copy of flat with credentials hidden. Tokens keep
// their last four characters so they can be told apart; inline JSON
// credentials only show their size.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		s, ok := v.(string)
		if !ok || s == "" || !IsSecretKey(k) {
			out[k] = v
			continue
		}
		switch {
		case strings.HasSuffix(k, "credentials_json"):
			out[k] = fmt.Sprintf("***(%d bytes)", len(s))
		case len(s) <= 4:
			out[k] = "***"
		default:
			out[k] = "***" + s[len(s)-4:]
		}
	}
	return out
}
