// Package schema validates candidate output documents against the fixed
// target schemas (gnss_data, imu_data).
//
// Two layers run over every candidate: the embedded JSON schema compiled via
// jsonschema, and a structural walk that produces an itemized violation list
// (field path, expected vs. actual). The walk exists because the fallback
// retry loops feed field-level violations back to the code-generation
// service, which needs that detail in a stable shape.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	schemasassets "github.com/3leaps/navconv/internal/assets/schemas"
)

// Kind selects one of the two fixed target schemas.
type Kind string

const (
	KindGNSS Kind = "gnss_data"
	KindIMU  Kind = "imu_data"
)

// ErrUnknownKind indicates a schema kind outside the fixed contract.
var ErrUnknownKind = errors.New("unknown target schema kind")

// Violation is a single structural non-compliance finding.
type Violation struct {
	// Path is the slash-separated field path (e.g.
	// "gnss_data/3/position_lla/latitude_deg").
	Path string `json:"path"`

	// Expected describes the required shape at Path.
	Expected string `json:"expected"`

	// Actual describes what the candidate document carries.
	Actual string `json:"actual"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", v.Path, v.Expected, v.Actual)
}

// Result is the outcome of checking one candidate document.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Cached compiled validators, one per kind.
var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func getSchema(kind Kind) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[Kind]*jsonschema.Schema, 2)
		for k, raw := range map[Kind][]byte{
			KindGNSS: schemasassets.GNSSDataSchema,
			KindIMU:  schemasassets.IMUDataSchema,
		} {
			c := jsonschema.NewCompiler()
			name := string(k) + ".schema.json"
			if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
				compileErr = fmt.Errorf("add %s: %w", name, err)
				return
			}
			s, err := c.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			compiled[k] = s
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// Text returns the embedded schema document for kind, for inclusion in
// code-generation prompts.
func Text(kind Kind) string {
	switch kind {
	case KindGNSS:
		return string(schemasassets.GNSSDataSchema)
	case KindIMU:
		return string(schemasassets.IMUDataSchema)
	}
	return ""
}

// Validate checks doc against the compiled schema for kind. Returns nil on
// compliance.
func Validate(kind Kind, doc []byte) error {
	s, err := getSchema(kind)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal candidate document: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("document does not match %s schema: %w", kind, err)
	}
	return nil
}

// Check runs the structural walk and the compiled schema over doc, returning
// the itemized result. The error return is reserved for unusable input
// (undecodable JSON, unknown kind), not for non-compliance.
func Check(kind Kind, doc []byte) (*Result, error) {
	spec, ok := elementSpecs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("unmarshal candidate document: %w", err)
	}

	res := &Result{Valid: true}
	arr, present := root[string(kind)]
	if !present {
		res.fail(string(kind), "array", "missing")
		return res, nil
	}
	elements, isArr := arr.([]any)
	if !isArr {
		res.fail(string(kind), "array", typeName(arr))
		return res, nil
	}

	for i, el := range elements {
		obj, isObj := el.(map[string]any)
		base := fmt.Sprintf("%s/%d", kind, i)
		if !isObj {
			res.fail(base, "object", typeName(el))
			continue
		}
		for _, f := range spec {
			checkField(res, base, obj, f)
		}
	}

	// The compiled schema is authoritative: it catches anything the walk
	// has no spec entry for (range bounds, mistyped optionals).
	if res.Valid {
		if err := Validate(kind, doc); err != nil {
			res.fail(string(kind), "schema-compliant document", err.Error())
		}
	}
	return res, nil
}

// field describes one required entry of a target element.
type field struct {
	path     []string
	expected string // "number" or "object"
}

var elementSpecs = map[Kind][]field{
	KindGNSS: {
		{path: []string{"time_unix"}, expected: "number"},
		{path: []string{"position_lla"}, expected: "object"},
		{path: []string{"position_lla", "latitude_deg"}, expected: "number"},
		{path: []string{"position_lla", "longitude_deg"}, expected: "number"},
		{path: []string{"position_lla", "altitude_m"}, expected: "number"},
	},
	KindIMU: {
		{path: []string{"time_unix"}, expected: "number"},
		{path: []string{"linear_acceleration"}, expected: "object"},
		{path: []string{"linear_acceleration", "x"}, expected: "number"},
		{path: []string{"linear_acceleration", "y"}, expected: "number"},
		{path: []string{"linear_acceleration", "z"}, expected: "number"},
		{path: []string{"angular_velocity"}, expected: "object"},
		{path: []string{"angular_velocity", "x"}, expected: "number"},
		{path: []string{"angular_velocity", "y"}, expected: "number"},
		{path: []string{"angular_velocity", "z"}, expected: "number"},
		{path: []string{"orientation"}, expected: "object"},
		{path: []string{"orientation", "w"}, expected: "number"},
		{path: []string{"orientation", "x"}, expected: "number"},
		{path: []string{"orientation", "y"}, expected: "number"},
		{path: []string{"orientation", "z"}, expected: "number"},
	},
}

func checkField(res *Result, base string, obj map[string]any, f field) {
	var cur any = obj
	walked := base
	for _, p := range f.path {
		m, isObj := cur.(map[string]any)
		if !isObj {
			res.fail(walked, "object", typeName(cur))
			return
		}
		next, present := m[p]
		walked = walked + "/" + p
		if !present {
			res.fail(walked, f.expected, "missing")
			return
		}
		cur = next
	}

	switch f.expected {
	case "number":
		n, isNum := cur.(float64)
		if !isNum || math.IsNaN(n) || math.IsInf(n, 0) {
			res.fail(walked, "number", typeName(cur))
		}
	case "object":
		if _, isObj := cur.(map[string]any); !isObj {
			res.fail(walked, "object", typeName(cur))
		}
	}
}

func (r *Result) fail(path, expected, actual string) {
	r.Valid = false
	r.Violations = append(r.Violations, Violation{Path: path, Expected: expected, Actual: actual})
}

// FormatViolations renders violations one per line for corrective feedback
// prompts.
func FormatViolations(vs []Violation) string {
	lines := make([]string, 0, len(vs))
	for _, v := range vs {
		lines = append(lines, v.String())
	}
	return strings.Join(lines, "\n")
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
