// Package validators is the built-in validator catalog for formtree
// controls. Presence checks aside, the rules treat an empty value as
// acceptable so that Required stays the single source of presence errors
// and the others compose with it freely.
package validators

import (
	"fmt"
	"reflect"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/formtree/formtree"
)

// ErrAsyncFailure is the reserved error kind for async validators whose
// underlying operation failed (network down, timeout) rather than rejected
// the value. The core never sets it; adapters resolve with it so the
// failure lands in the control's error map instead of being lost.
const ErrAsyncFailure = "asyncFailure"

var validate = validator.New()

// Required errors when the control's value is empty: nil, an empty string,
// or a zero-length slice or map.
func Required(c *formtree.Control) formtree.Errors {
	if isEmpty(c.Value()) {
		return formtree.Errors{"required": true}
	}
	return nil
}

// Email errors when the value is a non-empty string that is not a valid
// email address.
func Email(c *formtree.Control) formtree.Errors {
	s, ok := c.Value().(string)
	if !ok || s == "" {
		return nil
	}
	if validate.Var(s, "email") != nil {
		return formtree.Errors{"email": true}
	}
	return nil
}

// Min errors when the value is a number below min. Non-numeric values are
// ignored.
func Min(min float64) formtree.ValidatorFn {
	rule := fmt.Sprintf("min=%v", min)
	return func(c *formtree.Control) formtree.Errors {
		v, ok := toFloat(c.Value())
		if !ok {
			return nil
		}
		if validate.Var(v, rule) != nil {
			return formtree.Errors{"min": map[string]any{"min": min, "actual": v}}
		}
		return nil
	}
}

// Max errors when the value is a number above max. Non-numeric values are
// ignored.
func Max(max float64) formtree.ValidatorFn {
	rule := fmt.Sprintf("max=%v", max)
	return func(c *formtree.Control) formtree.Errors {
		v, ok := toFloat(c.Value())
		if !ok {
			return nil
		}
		if validate.Var(v, rule) != nil {
			return formtree.Errors{"max": map[string]any{"max": max, "actual": v}}
		}
		return nil
	}
}

// MinLength errors when a non-empty string (in runes) or slice is shorter
// than n.
func MinLength(n int) formtree.ValidatorFn {
	return func(c *formtree.Control) formtree.Errors {
		length, ok := valueLength(c.Value())
		if !ok || length == 0 {
			return nil
		}
		if length < n {
			return formtree.Errors{"minlength": map[string]any{"requiredLength": n, "actualLength": length}}
		}
		return nil
	}
}

// MaxLength errors when a string (in runes) or slice is longer than n.
func MaxLength(n int) formtree.ValidatorFn {
	return func(c *formtree.Control) formtree.Errors {
		length, ok := valueLength(c.Value())
		if !ok {
			return nil
		}
		if length > n {
			return formtree.Errors{"maxlength": map[string]any{"requiredLength": n, "actualLength": length}}
		}
		return nil
	}
}

// Pattern errors when a non-empty string value does not match re.
func Pattern(re *regexp.Regexp) formtree.ValidatorFn {
	return func(c *formtree.Control) formtree.Errors {
		s, ok := c.Value().(string)
		if !ok || s == "" {
			return nil
		}
		if !re.MatchString(s) {
			return formtree.Errors{"pattern": map[string]any{"requiredPattern": re.String(), "actualValue": s}}
		}
		return nil
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

func valueLength(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
