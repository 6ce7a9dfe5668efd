// Package validate turns a tool name and a raw argument payload into a typed
// [catalogue.Command].
//
// A single generic routine serves every tool: the tool's reflected input
// schema is compiled once, the payload is validated against it, every
// schema-declared default is filled in for absent properties, and the result
// is decoded into the tool's command struct. No tool has a bespoke validator.
//
// Validation is side-effect free and deterministic: the same name and
// payload always produce the same command or the same error.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/MrWong99/creatorgw/internal/catalogue"
)

// suggestThreshold is the minimum Jaro-Winkler similarity for an unknown
// tool name to be answered with a "did you mean" suggestion.
const suggestThreshold = 0.85

// schemaBaseURL namespaces the compiled schemas. Nothing is fetched from it.
const schemaBaseURL = "https://creatorgw.invalid/schemas/"

// Validator validates tool arguments against the catalogue's compiled input
// schemas. It is immutable after [New] and safe for concurrent use.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles the input schema of every catalogue tool.
func New() (*Validator, error) {
	descs := catalogue.List()
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(descs))}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.ExtractAnnotations = true
	for _, d := range descs {
		url := schemaBaseURL + d.Name + ".json"
		if err := c.AddResource(url, bytes.NewReader(d.InputSchema)); err != nil {
			return nil, fmt.Errorf("validate: add schema %s: %w", d.Name, err)
		}
		s, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("validate: compile schema %s: %w", d.Name, err)
		}
		v.schemas[d.Name] = s
	}
	return v, nil
}

var defaultValidator = sync.OnceValues(New)

// Validate validates raw against the named tool's schema using a
// process-wide [Validator].
func Validate(name string, raw json.RawMessage) (catalogue.Command, error) {
	v, err := defaultValidator()
	if err != nil {
		return nil, err
	}
	return v.Validate(name, raw)
}

// Validate returns the command for tool name built from raw. It fails with
// *UnknownToolError when name is not catalogued and *SchemaViolationError when
// raw does not satisfy the tool's schema. Empty or null raw is treated as {}.
func (v *Validator) Validate(name string, raw json.RawMessage) (catalogue.Command, error) {
	desc, ok := catalogue.Lookup(name)
	if !ok {
		return nil, &UnknownToolError{Name: name, Suggestion: suggest(name)}
	}
	schema := v.schemas[name]

	doc, err := decode(raw)
	if err != nil {
		return nil, &SchemaViolationError{Tool: name, Reason: err.Error()}
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, violation(name, ve)
		}
		return nil, &SchemaViolationError{Tool: name, Reason: err.Error()}
	}

	// The schema requires type object, so doc is a map from here on.
	args := doc.(map[string]any)
	applyDefaults(args, schema)

	b, err := json.Marshal(normalize(args))
	if err != nil {
		return nil, fmt.Errorf("validate: re-encode arguments for %s: %w", name, err)
	}
	cmd := desc.NewCommand()
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cmd); err != nil {
		return nil, &SchemaViolationError{Tool: name, Reason: err.Error()}
	}
	return cmd, nil
}

// decode parses raw into the generic JSON representation the schema
// validator expects. Numbers are kept as json.Number.
func decode(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("arguments contain trailing data after the JSON value")
	}
	return doc, nil
}

// applyDefaults fills every absent top-level property that declares a
// default.
func applyDefaults(args map[string]any, schema *jsonschema.Schema) {
	for prop, ps := range schema.Properties {
		if _, present := args[prop]; present || ps.Default == nil {
			continue
		}
		args[prop] = ps.Default
	}
}

// normalize rewrites integral json.Numbers such as 30.0 as 30 so they decode
// into int fields. The schema has already accepted them as integers.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return x
		}
		if f, err := x.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return json.Number(strconv.FormatInt(int64(f), 10))
		}
	}
	return v
}

// violation reduces a validation error tree to its first leaf cause, ordered
// by instance location so the reported field does not depend on map
// iteration order.
func violation(tool string, ve *jsonschema.ValidationError) *SchemaViolationError {
	leaves := collectLeaves(ve, nil)
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		if leaves[i].KeywordLocation != leaves[j].KeywordLocation {
			return leaves[i].KeywordLocation < leaves[j].KeywordLocation
		}
		return leaves[i].Message < leaves[j].Message
	})
	first := leaves[0]

	field := first.InstanceLocation
	if field == "" {
		if prop := quotedName(first.Message); prop != "" {
			field = "/" + prop
		}
	}
	reason := first.Message
	if n := len(leaves) - 1; n > 0 {
		reason += fmt.Sprintf(" (and %d more)", n)
	}
	return &SchemaViolationError{Tool: tool, Field: field, Reason: reason}
}

func collectLeaves(ve *jsonschema.ValidationError, acc []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return append(acc, ve)
	}
	for _, c := range ve.Causes {
		acc = collectLeaves(c, acc)
	}
	return acc
}

// quotedName extracts the first 'name' from a validator message such as
// "missing properties: 'usernames'".
func quotedName(msg string) string {
	start := strings.IndexByte(msg, '\'')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(msg[start+1:], '\'')
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

// suggest returns the catalogue name most similar to name, or "" when none
// reaches suggestThreshold.
func suggest(name string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return ""
	}
	best, bestScore := "", 0.0
	for _, candidate := range catalogue.Names() {
		if s := matchr.JaroWinkler(needle, candidate, false); s > bestScore {
			best, bestScore = candidate, s
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return best
}
