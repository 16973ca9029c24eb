package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Optional holds a value that may or may not have been supplied.
// The zero value is unset.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value was supplied.
func (o Optional[T]) IsSet() bool { return o.set }

// UnmarshalJSON marks the field set unless the JSON value is null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalJSON renders an unset Optional as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// Edit is one text replacement for the filesystem edit_file tool.
type Edit struct {
	OldText string `json:"oldText"`
	NewText string `json:"newText"`
}

// Args is the canonical parameter set forwarded to a tool. Only supplied
// parameters reach the tool. Arguments is a catch-all for tools whose
// parameters are not covered by the named fields; a named field overrides
// a same-named key in Arguments.
type Args struct {
	Query           Optional[string]   `json:"query"`
	Path            Optional[string]   `json:"path"`
	Count           Optional[int]      `json:"count"`
	Content         Optional[string]   `json:"content"`
	Edits           Optional[[]Edit]   `json:"edits"`
	Paths           Optional[[]string] `json:"paths"`
	Source          Optional[string]   `json:"source"`
	Destination     Optional[string]   `json:"destination"`
	Pattern         Optional[string]   `json:"pattern"`
	ExcludePatterns Optional[[]string] `json:"excludePatterns"`
	DryRun          Optional[bool]     `json:"dryRun"`
	Arguments       map[string]any     `json:"arguments,omitempty"`
}

// ParamNames lists the named parameters in declaration order.
var ParamNames = []string{
	"query", "path", "count", "content", "edits", "paths",
	"source", "destination", "pattern", "excludePatterns", "dryRun",
}

// Map assembles the arguments mapping sent to the tool.
func (a Args) Map() map[string]any {
	m := make(map[string]any, len(a.Arguments))
	maps.Copy(m, a.Arguments)

	put(m, "query", a.Query)
	put(m, "path", a.Path)
	put(m, "count", a.Count)
	put(m, "content", a.Content)
	put(m, "edits", a.Edits)
	put(m, "paths", a.Paths)
	put(m, "source", a.Source)
	put(m, "destination", a.Destination)
	put(m, "pattern", a.Pattern)
	put(m, "excludePatterns", a.ExcludePatterns)
	put(m, "dryRun", a.DryRun)
	return m
}

// Merge copies every supplied parameter of src into a.
func (a *Args) Merge(src Args) {
	if len(src.Arguments) > 0 && a.Arguments == nil {
		a.Arguments = make(map[string]any, len(src.Arguments))
	}
	maps.Copy(a.Arguments, src.Arguments)

	merge(&a.Query, src.Query)
	merge(&a.Path, src.Path)
	merge(&a.Count, src.Count)
	merge(&a.Content, src.Content)
	merge(&a.Edits, src.Edits)
	merge(&a.Paths, src.Paths)
	merge(&a.Source, src.Source)
	merge(&a.Destination, src.Destination)
	merge(&a.Pattern, src.Pattern)
	merge(&a.ExcludePatterns, src.ExcludePatterns)
	merge(&a.DryRun, src.DryRun)
}

func merge[T any](dst *Optional[T], src Optional[T]) {
	if src.IsSet() {
		*dst = src
	}
}

func put[T any](m map[string]any, key string, o Optional[T]) {
	if v, ok := o.Get(); ok {
		m[key] = v
	}
}

// ParseArgs reads a flat JSON object of tool arguments. Keys naming a
// canonical parameter fill that parameter; an "arguments" object and every
// other key go to Arguments, with top-level keys winning.
func ParseArgs(data []byte) (Args, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Args{}, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	var a Args
	if nested, ok := raw["arguments"]; ok {
		if err := json.Unmarshal(nested, &a.Arguments); err != nil {
			return Args{}, fmt.Errorf("arguments: %w", err)
		}
		delete(raw, "arguments")
	}

	named := make(map[string]json.RawMessage)
	for k, v := range raw {
		if slices.Contains(ParamNames, k) {
			named[k] = v
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return Args{}, fmt.Errorf("argument %s: %w", k, err)
		}
		if a.Arguments == nil {
			a.Arguments = make(map[string]any)
		}
		a.Arguments[k] = val
	}

	if len(named) > 0 {
		data, err := json.Marshal(named)
		if err != nil {
			return Args{}, err
		}
		if err := json.Unmarshal(data, &a); err != nil {
			return Args{}, fmt.Errorf("invalid argument: %w", err)
		}
	}
	return a, nil
}
