package pulsefeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPathNotFound is returned by a [Selector] whose path does not resolve.
var ErrPathNotFound = errors.New("path not found")

// Selector narrows a normalized payload to the part a poller decodes.
//
// Selectors run after envelope unwrapping, inside the attempt: a selector
// error fails the attempt like any other decode error.
type Selector func(payload json.RawMessage) (json.RawMessage, error)

// JSONPathSelector returns a [Selector] that walks the payload using dot
// notation. Object keys select fields; non-negative integers index arrays.
//
// Example:
//
//	// For payload {"stats": {"communities": [{"name": "Go"}]}}
//	sel := pulsefeed.JSONPathSelector("stats.communities.0")
func JSONPathSelector(path string) Selector {
	parts := strings.Split(path, ".")

	return func(payload json.RawMessage) (json.RawMessage, error) {
		current := payload
		for i, part := range parts {
			next, ok := step(current, part)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(parts[:i+1], "."))
			}
			current = next
		}
		return current, nil
	}
}

// step descends one level into doc.
func step(doc json.RawMessage, part string) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return nil, false
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, false
		}
		v, ok := obj[part]
		return v, ok
	case '[':
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, false
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil || idx >= len(arr) {
			return nil, false
		}
		return arr[idx], true
	default:
		return nil, false
	}
}

// FirstMatch returns a [Selector] that tries selectors in order and returns
// the first successful result.
//
// This is useful for feeds whose payload moved between API versions.
//
// Example:
//
//	sel := pulsefeed.FirstMatch(
//	    pulsefeed.JSONPathSelector("result.members"),
//	    pulsefeed.JSONPathSelector("members"),
//	)
func FirstMatch(selectors ...Selector) Selector {
	return func(payload json.RawMessage) (json.RawMessage, error) {
		err := ErrPathNotFound
		for _, sel := range selectors {
			out, selErr := sel(payload)
			if selErr == nil {
				return out, nil
			}
			err = selErr
		}
		return nil, err
	}
}
