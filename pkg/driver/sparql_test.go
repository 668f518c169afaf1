package driver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/scenegraph/pkg/types"
)

const ex = "http://example.org/ontology#"

func classQuery() *Query {
	return &Query{
		Select: []string{"s", "p", "o"},
		Branches: [][]Pattern{
			{
				{S: Var("s"), P: IRI(types.RDFType), O: IRI(ex + "SceneObject")},
				{S: Var("s"), P: Var("p"), O: Var("o")},
			},
			{
				{S: Var("root"), P: IRI(types.RDFType), O: IRI(ex + "SceneObject")},
				{S: Var("root"), P: IRI(ex + "hasPosition"), O: Var("s")},
				{S: Var("s"), P: Var("p"), O: Var("o")},
			},
		},
	}
}

func TestRenderSelect(t *testing.T) {
	text, err := RenderSelect(classQuery())
	require.NoError(t, err)

	want := "SELECT ?s ?p ?o WHERE {\n" +
		"  { ?s <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <" + ex + "SceneObject> . ?s ?p ?o . }\n" +
		"  UNION\n" +
		"  { ?root <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <" + ex + "SceneObject> . ?root <" + ex + "hasPosition> ?s . ?s ?p ?o . }\n" +
		"}"
	assert.Equal(t, want, text)
}

func TestRenderSelectRejectsUnsafeInput(t *testing.T) {
	tests := []struct {
		name string
		q    *Query
	}{
		{
			name: "iri breaking out of brackets",
			q: &Query{Select: []string{"s"}, Branches: [][]Pattern{{
				{S: Var("s"), P: IRI(types.RDFType), O: IRI(ex + "A> . ?x ?y ?z . <b")},
			}}},
		},
		{
			name: "variable name with punctuation",
			q: &Query{Select: []string{"s"}, Branches: [][]Pattern{{
				{S: Var("s } DROP ALL {"), P: Var("p"), O: Var("o")},
			}}},
		},
		{
			name: "selected variable not bound",
			q: &Query{Select: []string{"x"}, Branches: [][]Pattern{{
				{S: Var("s"), P: Var("p"), O: Var("o")},
			}}},
		},
		{
			name: "literal in subject position",
			q: &Query{Select: []string{"o"}, Branches: [][]Pattern{{
				{S: Const(types.NewLiteral("a", "")), P: Var("p"), O: Var("o")},
			}}},
		},
		{
			name: "no branches",
			q:    &Query{Select: []string{"s"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderSelect(tt.q)
			assert.Error(t, err)
		})
	}
}

func TestRenderUpdate(t *testing.T) {
	root := ex + "SceneObject_1"
	u := &Update{
		Clear: []string{root, root + "/hasPosition"},
		Insert: []types.Fact{
			types.NewFact(root, types.RDFType, types.NewIRI(ex+"SceneObject")),
			types.NewFact(root, ex+"hasVersion", types.NewLiteral(`Cup" } ; DROP ALL ; #`, types.XSDString)),
			types.NewFact(root+"/hasPosition", ex+"x", types.NewLiteral("1.5", types.XSDFloat)),
		},
	}

	text, err := RenderUpdate(u)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "DELETE { ?s ?p ?o } WHERE {\n  VALUES ?s { <"+root+"> <"+root+"/hasPosition> }"))
	assert.Contains(t, text, " ;\nINSERT DATA {\n")
	assert.Contains(t, text, `"Cup\" } ; DROP ALL ; #"^^<http://www.w3.org/2001/XMLSchema#string>`)
	assert.Contains(t, text, `<`+root+`/hasPosition> <`+ex+`x> "1.5"^^<http://www.w3.org/2001/XMLSchema#float> .`)
	assert.NotContains(t, text, `Cup" }`, "quotes inside literals are escaped")

	empty, err := RenderUpdate(&Update{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = RenderUpdate(&Update{Clear: []string{"http://example.org/a b"}})
	assert.Error(t, err)
}

// fakeFuseki records requests and answers queries with canned bindings.
type fakeFuseki struct {
	t        *testing.T
	queries  []string
	updates  []string
	bindings []map[string]sparqlValue
	status   int
}

func (f *fakeFuseki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if f.status != 0 {
		http.Error(w, "boom", f.status)
		return
	}
	switch r.URL.Path {
	case "/mainDataset/query":
		assert.Equal(f.t, sparqlResultsJSON, r.Header.Get("Accept"))
		assert.True(f.t, strings.HasPrefix(r.Header.Get("Content-Type"), "application/sparql-query"))
		f.queries = append(f.queries, string(body))
		var res sparqlResults
		if strings.HasPrefix(string(body), "ASK") {
			yes := true
			res.Boolean = &yes
		} else {
			res.Head.Vars = []string{"s", "p", "o"}
			res.Results.Bindings = f.bindings
		}
		w.Header().Set("Content-Type", sparqlResultsJSON)
		_ = json.NewEncoder(w).Encode(res)
	case "/mainDataset/update":
		assert.True(f.t, strings.HasPrefix(r.Header.Get("Content-Type"), "application/sparql-update"))
		user, pass, ok := r.BasicAuth()
		assert.True(f.t, ok)
		assert.Equal(f.t, "admin", user)
		assert.Equal(f.t, "pw", pass)
		f.updates = append(f.updates, string(body))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func TestSPARQLDriver(t *testing.T) {
	fake := &fakeFuseki{
		t: t,
		bindings: []map[string]sparqlValue{
			{
				"s": {Type: "uri", Value: ex + "SceneObject_1"},
				"p": {Type: "uri", Value: ex + "hasVersion"},
				"o": {Type: "literal", Value: "Ceramic Cup"},
			},
			{
				"s": {Type: "uri", Value: ex + "SceneObject_1/hasPosition"},
				"p": {Type: "uri", Value: ex + "x"},
				"o": {Type: "typed-literal", Value: "1", Datatype: types.XSDFloat},
			},
			{
				"s": {Type: "uri", Value: ex + "SceneObject_1"},
				"p": {Type: "uri", Value: ex + "label"},
				"o": {Type: "literal", Value: "Tasse", Lang: "de"},
			},
		},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	d, err := NewSPARQLDriver(SPARQLConfig{Endpoint: srv.URL, Username: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, StoreProviderSPARQL, d.Provider())

	ctx := context.Background()
	require.NoError(t, d.Ping(ctx))

	rows, err := d.Query(ctx, classQuery())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, types.NewLiteral("Ceramic Cup", types.XSDString), rows[0]["o"])
	assert.Equal(t, types.NewLiteral("1", types.XSDFloat), rows[1]["o"])
	assert.Equal(t, types.NewLiteral("Tasse", types.XSDString), rows[2]["o"])
	assert.Equal(t, types.NewIRI(ex+"SceneObject_1/hasPosition"), rows[1]["s"])

	require.NoError(t, d.Update(ctx, &Update{
		Clear:  []string{ex + "SceneObject_1"},
		Insert: []types.Fact{types.NewFact(ex+"SceneObject_1", ex+"hasVersion", types.NewLiteral("Glass", ""))},
	}))
	require.Len(t, fake.updates, 1, "delete and insert travel in one request")
	assert.Contains(t, fake.updates[0], "DELETE")
	assert.Contains(t, fake.updates[0], "INSERT DATA")

	require.NoError(t, d.Update(ctx, &Update{}))
	assert.Len(t, fake.updates, 1, "empty update sends nothing")

	require.NoError(t, d.Close(ctx))
}

func TestSPARQLDriverErrors(t *testing.T) {
	fake := &fakeFuseki{t: t, status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	d, err := NewSPARQLDriver(SPARQLConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.Query(ctx, classQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "status 503")

	err = d.Update(ctx, &Update{Clear: []string{ex + "a"}})
	var sce *StoreCommunicationError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, "update", sce.Op)

	err = d.Update(ctx, &Update{Clear: []string{"not an iri"}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStoreUnavailable, "invalid input is not a store failure")

	srv.Close()
	assert.ErrorIs(t, d.Ping(ctx), ErrStoreUnavailable)
}

func TestNewSPARQLDriverDefaults(t *testing.T) {
	d, err := NewSPARQLDriver(SPARQLConfig{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3030/mainDataset/query", d.queryURL)
	assert.Equal(t, "http://localhost:3030/mainDataset/update", d.updateURL)

	_, err = NewSPARQLDriver(SPARQLConfig{QueryURL: "::"})
	assert.Error(t, err)
}
