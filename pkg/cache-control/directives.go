// Package cachecontrol implements parsing, merging and re-serialization of
// Cache-Control directive sets.
package cachecontrol

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrNotImplementedDirective is returned when an override names the "public"
// or "private" directive. Arbitration between shared and private caching is
// not implemented, and silently ignoring either directive would produce
// incorrect caching behavior.
var ErrNotImplementedDirective = errors.New("cache-control directive not implemented")

// Directives is an ordered set of Cache-Control directives.
// Order is preserved across a parse / merge / serialize round trip:
// directives keep their first-seen position, newly added ones are appended.
type Directives struct {
	names  []string
	values map[string]interface{}
}

// Parse reads a Cache-Control header value into a directive set.
// Bare tokens parse to boolean true, "key=value" pairs to the value string.
func Parse(header string) *Directives {
	d := &Directives{values: make(map[string]interface{})}
	for _, field := range strings.Split(header, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, arg, found := strings.Cut(field, "=")
		if found {
			d.set(name, arg)
		} else {
			d.set(name, true)
		}
	}
	return d
}

// Get returns the value of the named directive:
// true for a bare token, a string for a "key=value" directive.
func (d *Directives) Get(name string) (interface{}, bool) {
	value, ok := d.values[name]
	return value, ok
}

func (d *Directives) set(name string, value interface{}) {
	if _, ok := d.values[name]; !ok {
		d.names = append(d.names, name)
	}
	d.values[name] = value
}

func (d *Directives) remove(name string) {
	if _, ok := d.values[name]; !ok {
		return
	}
	delete(d.values, name)
	for i, n := range d.names {
		if n == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
}

// String re-serializes the directive set as a comma-joined HTTP list.
// Boolean true renders as a bare token, false is omitted entirely.
func (d *Directives) String() string {
	fields := make([]string, 0, len(d.names))
	for _, name := range d.names {
		switch value := d.values[name].(type) {
		case bool:
			if value {
				fields = append(fields, name)
			}
		default:
			fields = append(fields, fmt.Sprintf("%s=%v", name, value))
		}
	}
	return strings.Join(fields, ", ")
}

// Overrides is an ordered set of directive overrides to merge into an
// existing Cache-Control header. Override names use underscores in place of
// hyphens ("max_age", "stale_while_revalidate"); values are booleans or
// integer seconds. A false value removes the directive.
type Overrides struct {
	names  []string
	values map[string]interface{}
}

func NewOverrides() *Overrides {
	return &Overrides{values: make(map[string]interface{})}
}

// Set adds or replaces an override. Setting a name twice keeps its
// original position.
func (o *Overrides) Set(name string, value interface{}) *Overrides {
	name = strings.ReplaceAll(name, "-", "_")
	if _, ok := o.values[name]; !ok {
		o.names = append(o.names, name)
	}
	o.values[name] = value
	return o
}

// Validate reports unsupported overrides. It is meant to run at composition
// time so a misconfigured directive set fails at startup, not per request.
func (o *Overrides) Validate() error {
	for _, name := range []string{"public", "private"} {
		if _, ok := o.values[name]; ok {
			return fmt.Errorf("%w: %q", ErrNotImplementedDirective, strings.ReplaceAll(name, "_", "-"))
		}
	}
	return nil
}

// Empty reports whether the override set contains no directives.
func (o *Overrides) Empty() bool {
	return len(o.names) == 0
}

// String renders the override set for diagnostics.
func (o *Overrides) String() string {
	fields := make([]string, 0, len(o.names))
	for _, name := range o.names {
		fields = append(fields, fmt.Sprintf("%s=%v", name, o.values[name]))
	}
	return strings.Join(fields, " ")
}

// Patch merges the overrides into the Cache-Control header of the given
// header map. Merge rules:
//
//   - If both sides specify max-age, the smaller value wins; freshness is
//     never widened beyond what either party allows.
//   - public and private overrides fail with ErrNotImplementedDirective.
//   - A false override removes the directive, true renders a bare token,
//     anything else renders as "key=value".
//   - An empty merge result removes the header rather than emit an empty
//     value.
//
// Patching is idempotent: applying the same overrides twice yields the same
// header value as applying them once.
func Patch(header http.Header, overrides *Overrides) error {
	if err := overrides.Validate(); err != nil {
		return err
	}

	directives := Parse(header.Get("Cache-Control"))

	merged := make(map[string]interface{}, len(overrides.values))
	for name, value := range overrides.values {
		merged[name] = value
	}
	if existing, ok := directives.Get("max-age"); ok {
		if override, ok := merged["max_age"]; ok {
			merged["max_age"] = minMaxAge(existing, override)
		}
	}

	for _, name := range overrides.names {
		wire := strings.ReplaceAll(name, "_", "-")
		value := merged[name]
		if value == false {
			directives.remove(wire)
		} else {
			directives.set(wire, value)
		}
	}

	if patched := directives.String(); patched != "" {
		header.Set("Cache-Control", patched)
	} else {
		header.Del("Cache-Control")
	}
	return nil
}

// minMaxAge keeps the smaller of the existing and overriding max-age.
// An unparsable existing value defers to the override.
func minMaxAge(existing, override interface{}) interface{} {
	current, err := strconv.Atoi(fmt.Sprintf("%v", existing))
	if err != nil {
		return override
	}
	next, err := strconv.Atoi(fmt.Sprintf("%v", override))
	if err != nil {
		return override
	}
	if current < next {
		return current
	}
	return next
}
