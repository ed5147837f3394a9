// Package topic implements MQTT topic validation, canonicalization, and the
// wildcard match algorithm used to fan out a received Publish to
// subscriptions (MQTT-3.1.1 section 4.7).
package topic

import (
	"errors"
	"strings"
)

// ErrInvalid is returned by Validate and Canonicalize when a topic violates
// the structural rules: empty, too long, containing a NUL byte, containing
// adjacent separators, or (for publish topics) containing a wildcard.
var ErrInvalid = errors.New("topic: invalid")

const maxLength = 65535

// Validate checks the structural rules common to every topic string:
// 1-65535 UTF-8 bytes, no U+0000, and no adjacent "//" separators. It does
// not check wildcard placement; callers that forbid wildcards (publish
// topics) must call HasWildcard themselves.
func Validate(t string) error {
	if len(t) == 0 || len(t) > maxLength {
		return ErrInvalid
	}
	if strings.ContainsRune(t, 0) {
		return ErrInvalid
	}
	if strings.Contains(t, "//") {
		return ErrInvalid
	}
	return nil
}

// HasWildcard reports whether t contains a `+` or `#` level.
func HasWildcard(t string) bool {
	for _, l := range strings.Split(t, "/") {
		if l == "+" || l == "#" {
			return true
		}
	}
	return false
}

// ValidatePublishTopic validates a topic used in a Publish: it must pass
// Validate and must not contain any wildcard level.
func ValidatePublishTopic(t string) error {
	if err := Validate(t); err != nil {
		return err
	}
	if HasWildcard(t) {
		return ErrInvalid
	}
	return nil
}

// ValidateFilter validates a topic filter used in a Subscribe/Unsubscribe:
// it must pass Validate, `#` may only appear as the final level, and `+`/`#`
// must each occupy an entire level (never mixed with other characters).
func ValidateFilter(t string) error {
	if err := Validate(t); err != nil {
		return err
	}
	levels := strings.Split(t, "/")
	for i, l := range levels {
		if strings.Contains(l, "#") && l != "#" {
			return ErrInvalid
		}
		if strings.Contains(l, "+") && l != "+" {
			return ErrInvalid
		}
		if l == "#" && i != len(levels)-1 {
			return ErrInvalid
		}
	}
	return nil
}

// Canonicalize validates a subscription filter and returns it unchanged;
// canonical form for this engine is simply the validated filter string
// itself (no case folding, no separator normalization).
func Canonicalize(filter string) (string, error) {
	if err := ValidateFilter(filter); err != nil {
		return "", err
	}
	return filter, nil
}

// Match reports whether the publish topic matches the subscription pattern,
// per MQTT-3.1.1 section 4.7: `#` in the pattern matches all remaining
// levels of topic (including zero), `+` matches exactly one level, any
// other level must match bytewise.
func Match(pattern, topic string) bool {
	pLevels := strings.Split(pattern, "/")
	tLevels := strings.Split(topic, "/")

	// A leading "$" level in topic (e.g. "$SYS/...") only matches a
	// pattern whose first level is not a wildcard, per common broker
	// convention; this engine does not special-case it since spec.md
	// does not mention $-topics, so it is left to bytewise/wildcard rules.
	for i, p := range pLevels {
		if p == "#" {
			return true
		}
		if i >= len(tLevels) {
			return false
		}
		if p == "+" {
			continue
		}
		if p != tLevels[i] {
			return false
		}
	}
	return len(pLevels) == len(tLevels)
}
