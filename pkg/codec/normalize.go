package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/soundprediction/scenegraph/pkg/schema"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// Validate checks that attrs matches the class schema exactly.
func (c *Codec) Validate(attrs types.Attributes) error {
	_, err := c.Normalize(attrs)
	return err
}

// Normalize validates attrs and returns a copy in canonical form: floats as
// float64, integers as int64, nested values as types.Attributes and
// references as local names when they live in the reference class namespace.
// The input is not modified.
func (c *Codec) Normalize(attrs types.Attributes) (types.Attributes, error) {
	mismatch := &SchemaMismatchError{Class: c.class.Name}
	out := normalizeClass(c.class, attrs, "", mismatch)
	if !mismatch.empty() {
		return nil, mismatch
	}
	return out, nil
}

func normalizeClass(class *schema.ClassSchema, attrs types.Attributes, prefix string, mismatch *SchemaMismatchError) types.Attributes {
	out := make(types.Attributes, len(class.Attributes))
	for _, name := range attrs.Names() {
		if _, ok := class.Attribute(name); !ok {
			mismatch.Unexpected = append(mismatch.Unexpected, prefix+name)
		}
	}
	for _, def := range class.Attributes {
		path := prefix + def.Name
		raw, ok := attrs[def.Name]
		if !ok {
			mismatch.Missing = append(mismatch.Missing, path)
			continue
		}
		if raw == nil {
			mismatch.Invalid = append(mismatch.Invalid, path+": value is null")
			continue
		}

		switch kind := def.Kind.(type) {
		case schema.Scalar:
			v, err := normalizeScalar(kind.Type, raw)
			if err != nil {
				mismatch.Invalid = append(mismatch.Invalid, path+": "+err.Error())
				continue
			}
			out[def.Name] = v
		case schema.Reference:
			v, err := normalizeReference(kind, raw)
			if err != nil {
				mismatch.Invalid = append(mismatch.Invalid, path+": "+err.Error())
				continue
			}
			out[def.Name] = v
		case schema.Composite:
			nested, ok := asAttributes(raw)
			if !ok {
				mismatch.Invalid = append(mismatch.Invalid, fmt.Sprintf("%s: expected nested %s object, got %T", path, kind.Class.Name, raw))
				continue
			}
			out[def.Name] = normalizeClass(kind.Class, nested, path+".", mismatch)
		}
	}
	return out
}

func asAttributes(v any) (types.Attributes, bool) {
	switch m := v.(type) {
	case types.Attributes:
		return m, true
	case map[string]any:
		return types.Attributes(m), true
	default:
		return nil, false
	}
}

func normalizeScalar(p schema.PrimitiveType, v any) (any, error) {
	switch p {
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("string is not valid UTF-8")
		}
		if strings.ContainsRune(s, 0) {
			return nil, fmt.Errorf("string contains a NUL character")
		}
		return s, nil
	case schema.Float, schema.Double:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("number must be finite, got %v", f)
		}
		if p == schema.Float {
			// Stores keep xsd:float in single precision.
			if math.Abs(f) > math.MaxFloat32 {
				return nil, fmt.Errorf("%v is out of range for xsd:float", f)
			}
			f = float64(float32(f))
		}
		return f, nil
	case schema.Integer:
		i, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("expected integer, got %v (%T)", v, v)
		}
		return i, nil
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported primitive type %q", p)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func normalizeReference(ref schema.Reference, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected %s name, got %T", types.LocalName(ref.Class), v)
	}
	if s == "" {
		return "", fmt.Errorf("reference is empty")
	}
	if !isAbsoluteIRI(s) {
		return s, nil
	}
	if !types.ValidIRI(s) {
		return "", fmt.Errorf("invalid IRI %q", s)
	}
	ns := types.NamespaceOf(ref.Class)
	if local, ok := strings.CutPrefix(s, ns); ok && local != "" {
		if unescaped, err := url.PathUnescape(local); err == nil && !isAbsoluteIRI(unescaped) {
			return unescaped, nil
		}
	}
	return s, nil
}

func isAbsoluteIRI(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "urn:")
}
