// Package config validates the embedder-supplied option tree and produces
// a fully-defaulted, typed Config. Validation walks a nested Schema of
// {type, default, allowed} rules — unrecognized or mistyped values fall
// back to their default rather than raising an error to the host, per
// SPEC_FULL.md §7 item 6 ("Bad config ... never throws to the host").
package config

import "github.com/fathomline/abyssviewer/logging"

// Kind names the accepted dynamic types for a raw option value, mirroring
// the {type, default, allowed?} rule shape from SPEC_FULL.md §2 (C2).
type Kind int

const (
	KString Kind = iota
	KBool
	KFloat
	KInt
	KMap // nested object, validated recursively against Sub.
)

// Rule describes one schema entry: its accepted Kind, the value substituted
// when the raw value is absent or fails validation, and (optionally) the
// closed set of values it may take. Allowed applies to KString/KInt only;
// a nil Allowed means "any value of Kind is accepted".
type Rule struct {
	Kind    Kind
	Default any
	Allowed []any
	Sub     Schema // only meaningful when Kind == KMap
}

// Schema maps option names to their Rule, at one nesting level.
type Schema map[string]Rule

// Validate walks raw against schema, returning a new map with every
// schema key present: raw's value when it type-checks (and, for Allowed
// rules, is a member of the allowed set), otherwise the rule's Default.
// A KMap rule with a Sub schema is always validated recursively, so an
// absent or mistyped nested map yields its sub-schema's defaults; a KMap
// rule without a Sub passes a well-typed map through unchanged. Keys in raw that aren't in schema are dropped silently — unrecognized
// options never propagate into the defaulted tree.
func Validate(raw map[string]any, schema Schema, log logging.Logger) map[string]any {
	if log == nil {
		log = logging.Discard()
	}
	out := make(map[string]any, len(schema))
	for name, rule := range schema {
		v, present := raw[name]
		checked, ok := checkKind(v, rule)
		if present && !ok {
			log.Warn("config: invalid value, using default", "option", name, "value", v)
		}
		if rule.Kind == KMap && rule.Sub != nil {
			// An absent or mistyped nested map still gets its sub-defaults.
			sub, _ := checked.(map[string]any)
			out[name] = Validate(sub, rule.Sub, log)
			continue
		}
		if !present || !ok {
			out[name] = rule.Default
			continue
		}
		if rule.Kind == KMap {
			out[name] = checked // no sub-schema: passed through for its decoder to check.
			continue
		}
		if len(rule.Allowed) > 0 && !isAllowed(checked, rule.Allowed) {
			log.Warn("config: value not in allowed set, using default", "option", name, "value", v)
			out[name] = rule.Default
			continue
		}
		out[name] = checked
	}
	return out
}

func checkKind(v any, rule Rule) (any, bool) {
	switch rule.Kind {
	case KString:
		s, ok := v.(string)
		return s, ok
	case KBool:
		b, ok := v.(bool)
		return b, ok
	case KFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		}
		return nil, false
	case KInt:
		switch n := v.(type) {
		case int:
			return n, true
		case float64:
			return int(n), n == float64(int(n))
		}
		return nil, false
	case KMap:
		m, ok := v.(map[string]any)
		return m, ok
	}
	return nil, false
}

func isAllowed(v any, allowed []any) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
