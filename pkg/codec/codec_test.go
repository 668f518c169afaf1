package codec

import (
	"errors"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/soundprediction/scenegraph/pkg/driver"
	"github.com/soundprediction/scenegraph/pkg/schema"
	"github.com/soundprediction/scenegraph/pkg/types"
)

const ex = schema.DefaultNamespace

func sceneCodec(t testing.TB, orientation schema.Orientation) *Codec {
	t.Helper()
	class, err := schema.Reflect(schema.Blueprint(ex, orientation), schema.DefaultClass)
	require.NoError(t, err)
	return New(class)
}

func cup() types.Attributes {
	return types.Attributes{
		"hasType":        "Cup",
		"hasVersion":     "Ceramic Cup",
		"hasPosition":    types.Attributes{"x": 1.0, "y": 1.0, "z": 1.0},
		"hasOrientation": types.Attributes{"qx": 0.1, "qy": 0.1, "qz": 0.1, "qw": 0.1},
	}
}

func TestEncode(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	facts, err := c.Encode(&types.Entity{ID: "1", Class: "SceneObject", Attributes: cup()})
	require.NoError(t, err)

	root := ex + "SceneObject_1"
	pos := root + "/hasPosition"
	assert.Contains(t, facts, types.NewFact(root, types.RDFType, types.NewIRI(ex+"SceneObject")))
	assert.Contains(t, facts, types.NewFact(root, ex+"hasType", types.NewIRI(ex+"Cup")))
	assert.Contains(t, facts, types.NewFact(root, ex+"hasVersion", types.NewLiteral("Ceramic Cup", types.XSDString)))
	assert.Contains(t, facts, types.NewFact(root, ex+"hasPosition", types.NewIRI(pos)))
	assert.Contains(t, facts, types.NewFact(pos, types.RDFType, types.NewIRI(ex+"Position")))
	assert.Contains(t, facts, types.NewFact(pos, ex+"x", types.NewLiteral("1", types.XSDFloat)))
	assert.Contains(t, facts, types.NewFact(root+"/hasOrientation", ex+"qw", types.NewLiteral("0.1", types.XSDFloat)))

	// 1 root type + 2 direct + 2*(link + type) + 3 position + 4 orientation
	assert.Len(t, facts, 1+2+4+3+4)
}

func TestEncodeRejectsMismatch(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	tests := []struct {
		name   string
		mutate func(types.Attributes)
		check  func(t *testing.T, e *SchemaMismatchError)
	}{
		{
			name:   "missing top-level attribute",
			mutate: func(a types.Attributes) { delete(a, "hasVersion") },
			check: func(t *testing.T, e *SchemaMismatchError) {
				assert.Equal(t, []string{"hasVersion"}, e.Missing)
			},
		},
		{
			name:   "unexpected attribute",
			mutate: func(a types.Attributes) { a["hasColour"] = "red" },
			check: func(t *testing.T, e *SchemaMismatchError) {
				assert.Equal(t, []string{"hasColour"}, e.Unexpected)
			},
		},
		{
			name:   "missing nested field",
			mutate: func(a types.Attributes) { delete(a["hasPosition"].(types.Attributes), "z") },
			check: func(t *testing.T, e *SchemaMismatchError) {
				assert.Equal(t, []string{"hasPosition.z"}, e.Missing)
			},
		},
		{
			name:   "unknown nested field",
			mutate: func(a types.Attributes) { a["hasOrientation"].(types.Attributes)["roll"] = 0.0 },
			check: func(t *testing.T, e *SchemaMismatchError) {
				assert.Equal(t, []string{"hasOrientation.roll"}, e.Unexpected)
			},
		},
		{
			name:   "wrong scalar type",
			mutate: func(a types.Attributes) { a["hasPosition"].(types.Attributes)["x"] = "one" },
			check: func(t *testing.T, e *SchemaMismatchError) {
				require.Len(t, e.Invalid, 1)
				assert.Contains(t, e.Invalid[0], "hasPosition.x")
			},
		},
		{
			name:   "scalar in place of nested object",
			mutate: func(a types.Attributes) { a["hasPosition"] = 3.0 },
			check: func(t *testing.T, e *SchemaMismatchError) {
				require.Len(t, e.Invalid, 1)
				assert.Contains(t, e.Invalid[0], "expected nested Position object")
			},
		},
		{
			name:   "empty reference",
			mutate: func(a types.Attributes) { a["hasType"] = "" },
			check: func(t *testing.T, e *SchemaMismatchError) {
				assert.Len(t, e.Invalid, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := cup()
			tt.mutate(attrs)

			_, err := c.Encode(&types.Entity{ID: "1", Attributes: attrs})
			require.Error(t, err)

			var mismatch *SchemaMismatchError
			require.True(t, errors.As(err, &mismatch), "expected SchemaMismatchError, got %T", err)
			tt.check(t, mismatch)

			_, err = c.BuildUpsert("1", attrs)
			assert.ErrorIs(t, err, &SchemaMismatchError{})
		})
	}
}

func TestEncodeRejectsBadIdentifier(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	_, err := c.Encode(&types.Entity{ID: "a b", Attributes: cup()})
	assert.ErrorIs(t, err, types.ErrInvalidID)

	_, err = c.BuildUpsert("", cup())
	assert.ErrorIs(t, err, types.ErrEmptyID)

	_, err = c.Encode(&types.Entity{ID: "1", Class: "Robot", Attributes: cup()})
	assert.ErrorIs(t, err, &SchemaMismatchError{})
}

func TestNormalize(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	in := types.Attributes{
		"hasType":        ex + "Drawer",
		"hasVersion":     "Oak",
		"hasPosition":    map[string]any{"x": 1, "y": int64(2), "z": float32(0.5)},
		"hasOrientation": map[string]any{"qx": 0.0, "qy": 0.0, "qz": 0.0, "qw": 1.0},
	}
	out, err := c.Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, "Drawer", out["hasType"], "references in the class namespace become local names")
	assert.Equal(t, types.Attributes{"x": 1.0, "y": 2.0, "z": 0.5}, out["hasPosition"])
	assert.IsType(t, map[string]any{}, in["hasPosition"], "input must not be modified")
}

func TestRoundTrip(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	want := &types.Entity{ID: "1", Class: "SceneObject", Attributes: cup()}
	facts, err := c.Encode(want)
	require.NoError(t, err)

	got, err := c.Decode(facts)
	require.NoError(t, err)
	require.Len(t, got, 1)

	normalized, err := c.Normalize(want.Attributes)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got[0].ID)
	assert.Equal(t, normalized, got[0].Attributes)
}

func TestFloatAttributesUseSinglePrecision(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	attrs := cup()
	attrs["hasPosition"] = types.Attributes{"x": 0.123456789012345, "y": 1.0, "z": 1.0}
	facts, err := c.Encode(&types.Entity{ID: "1", Attributes: attrs})
	require.NoError(t, err)

	pos := ex + "SceneObject_1/hasPosition"
	assert.Contains(t, facts, types.NewFact(pos, ex+"x", types.NewLiteral("0.12345679", types.XSDFloat)))

	out, err := c.Normalize(attrs)
	require.NoError(t, err)
	x := out["hasPosition"].(types.Attributes)["x"]
	assert.Equal(t, float64(float32(0.123456789012345)), x)

	got, err := c.Decode(facts)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, out, got[0].Attributes)

	// the lexical form a store hands back for the same float decodes equal
	v, err := parseLiteral(schema.Float, "0.12345679")
	require.NoError(t, err)
	assert.Equal(t, x, v)
}

func TestFloatAttributesOutOfRange(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	attrs := cup()
	attrs["hasPosition"] = types.Attributes{"x": 1e300, "y": 1.0, "z": 1.0}
	_, err := c.Encode(&types.Entity{ID: "1", Attributes: attrs})

	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Len(t, mismatch.Invalid, 1)
	assert.Contains(t, mismatch.Invalid[0], "hasPosition.x")
	assert.Contains(t, mismatch.Invalid[0], "out of range for xsd:float")
}

func TestStringAttributesRejectUnencodableText(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	tests := map[string]string{
		"invalid UTF-8": "Cup\xff",
		"NUL":           "Cup\x00Lid",
	}
	for name, version := range tests {
		t.Run(name, func(t *testing.T) {
			attrs := cup()
			attrs["hasVersion"] = version
			err := c.Validate(attrs)

			var mismatch *SchemaMismatchError
			require.True(t, errors.As(err, &mismatch))
			require.Len(t, mismatch.Invalid, 1)
			assert.Contains(t, mismatch.Invalid[0], "hasVersion")
		})
	}
}

func TestRoundTripProperty(t *testing.T) {
	for _, orientation := range []schema.Orientation{schema.OrientationQuaternion, schema.OrientationEuler} {
		t.Run(string(orientation), func(t *testing.T) {
			c := sceneCodec(t, orientation)

			rapid.Check(t, func(r *rapid.T) {
				id := rapid.StringMatching(`[A-Za-z0-9._-]{1,12}`).Draw(r, "id")
				attrs := drawAttributes(r, c.Class())

				facts, err := c.Encode(&types.Entity{ID: id, Class: c.Class().Name, Attributes: attrs})
				if err != nil {
					r.Fatalf("encode: %v", err)
				}
				got, err := c.Decode(facts)
				if err != nil {
					r.Fatalf("decode: %v", err)
				}
				if len(got) != 1 {
					r.Fatalf("decoded %d entities, want 1", len(got))
				}
				want, _ := c.Normalize(attrs)
				assert.Equal(r, id, got[0].ID)
				assert.Equal(r, want, got[0].Attributes)
			})
		})
	}
}

// drawAttributes generates a conforming value for any class whose attributes
// are Scalar, Reference or one level of Composite.
func drawAttributes(r *rapid.T, class *schema.ClassSchema) types.Attributes {
	attrs := make(types.Attributes, len(class.Attributes))
	for _, def := range class.Attributes {
		label := class.Name + "." + def.Name
		switch kind := def.Kind.(type) {
		case schema.Scalar:
			switch kind.Type {
			case schema.String:
				attrs[def.Name] = rapid.StringOf(rapid.RuneFrom(nil, unicode.Letter, unicode.Number, unicode.Punct, unicode.Space)).Draw(r, label)
			case schema.Float, schema.Double:
				attrs[def.Name] = rapid.Float64Range(-1e9, 1e9).Draw(r, label)
			case schema.Integer:
				attrs[def.Name] = rapid.Int64().Draw(r, label)
			case schema.Boolean:
				attrs[def.Name] = rapid.Bool().Draw(r, label)
			}
		case schema.Reference:
			attrs[def.Name] = rapid.StringMatching(`[A-Za-z][A-Za-z0-9 _/%-]{0,10}`).Draw(r, label)
		case schema.Composite:
			attrs[def.Name] = drawAttributes(r, kind.Class)
		}
	}
	return attrs
}

func TestDecodeReportsIncompleteEntities(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	complete, err := c.Encode(&types.Entity{ID: "2", Attributes: cup()})
	require.NoError(t, err)
	broken, err := c.Encode(&types.Entity{ID: "1", Attributes: cup()})
	require.NoError(t, err)

	// drop hasVersion and position z from entity 1
	var facts []types.Fact
	for _, f := range broken {
		if f.Predicate == ex+"hasVersion" || f.Predicate == ex+"z" {
			continue
		}
		facts = append(facts, f)
	}
	facts = append(facts, complete...)
	// a typed root whose subject carries no identifier
	facts = append(facts, types.NewFact(ex+"Kitchen", types.RDFType, types.NewIRI(ex+"SceneObject")))

	entities, err := c.Decode(facts)
	require.Len(t, entities, 1)
	assert.Equal(t, "2", entities[0].ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, &IncompleteEntityError{})

	var incomplete *IncompleteEntityError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, "1", incomplete.ID)
	assert.ElementsMatch(t, []string{"hasPosition.z", "hasVersion"}, incomplete.Missing)
	assert.Contains(t, err.Error(), ex+"Kitchen")
}

func TestDecodeRejectsDuplicatesAndBadLiterals(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	facts, err := c.Encode(&types.Entity{ID: "5", Attributes: cup()})
	require.NoError(t, err)
	root := ex + "SceneObject_5"
	facts = append(facts,
		types.NewFact(root, ex+"hasVersion", types.NewLiteral("Glass Cup", types.XSDString)),
		types.NewFact(root+"/hasPosition", ex+"x", types.NewLiteral("wide", types.XSDFloat)),
	)

	entities, err := c.Decode(facts)
	assert.Empty(t, entities)

	var incomplete *IncompleteEntityError
	require.True(t, errors.As(err, &incomplete))
	assert.Len(t, incomplete.Problems, 2)
}

func TestDecodeSortsNumerically(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	var facts []types.Fact
	for _, id := range []string{"10", "b", "2", "a", "1"} {
		f, err := c.Encode(&types.Entity{ID: id, Attributes: cup()})
		require.NoError(t, err)
		facts = append(facts, f...)
	}

	entities, err := c.Decode(facts)
	require.NoError(t, err)

	var ids []string
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"1", "2", "10", "a", "b"}, ids)
}

func TestDecodeBindings(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	facts, err := c.Encode(&types.Entity{ID: "3", Attributes: cup()})
	require.NoError(t, err)

	var rows []driver.Binding
	for _, f := range facts {
		row := driver.Binding{"s": types.NewIRI(f.Subject), "p": types.NewIRI(f.Predicate), "o": f.Object}
		rows = append(rows, row, row)
	}

	entities, err := c.DecodeBindings(rows)
	require.NoError(t, err, "duplicate rows from overlapping branches are collapsed")
	require.Len(t, entities, 1)

	_, err = c.DecodeBindings([]driver.Binding{{"s": types.NewIRI(ex + "a")}})
	assert.Error(t, err)
}

func TestBuildQuery(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	q := c.BuildQuery()
	require.NoError(t, q.Validate())
	assert.Equal(t, []string{"s", "p", "o"}, q.Select)
	require.Len(t, q.Branches, 3, "root branch plus one per composite")
	assert.Equal(t, driver.IRI(ex+"hasOrientation"), q.Branches[1][1].P)
	assert.Equal(t, driver.IRI(ex+"hasPosition"), q.Branches[2][1].P)
}

func TestBuildUpsert(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	upd, err := c.BuildUpsert("4", cup())
	require.NoError(t, err)
	require.NoError(t, upd.Validate())

	assert.Equal(t, []string{
		ex + "SceneObject_4",
		ex + "SceneObject_4/hasOrientation",
		ex + "SceneObject_4/hasPosition",
	}, upd.Clear)

	facts, err := c.Encode(&types.Entity{ID: "4", Attributes: cup()})
	require.NoError(t, err)
	assert.Equal(t, facts, upd.Insert)

	for _, f := range upd.Insert {
		assert.Contains(t, upd.Clear, f.Subject, "every inserted fact is owned by a cleared subject")
	}
}

func TestSubjectID(t *testing.T) {
	c := sceneCodec(t, schema.OrientationQuaternion)

	id, ok := c.ID(c.Subject("42"))
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	_, ok = c.ID(c.NestedSubject("42", "hasPosition"))
	assert.False(t, ok)
	_, ok = c.ID(ex + "Position_42")
	assert.False(t, ok)
}

func TestLessID(t *testing.T) {
	assert.True(t, LessID("2", "10"))
	assert.False(t, LessID("10", "2"))
	assert.True(t, LessID("9", "a"))
	assert.True(t, LessID("a", "b"))
	assert.True(t, LessID("01", "1"))
}
