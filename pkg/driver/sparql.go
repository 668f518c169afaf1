package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soundprediction/scenegraph/pkg/types"
)

const (
	DefaultSPARQLEndpoint = "http://localhost:3030"
	DefaultSPARQLDataset  = "mainDataset"

	sparqlResultsJSON = "application/sparql-results+json"
)

// SPARQLConfig configures a SPARQLDriver. QueryURL and UpdateURL default to
// the Fuseki layout <Endpoint>/<Dataset>/query and /update.
type SPARQLConfig struct {
	Endpoint  string
	Dataset   string
	QueryURL  string
	UpdateURL string
	Username  string
	Password  string
	Timeout   time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// SPARQLDriver is a StoreClient for SPARQL 1.1 Protocol endpoints such as
// Apache Jena Fuseki.
type SPARQLDriver struct {
	queryURL   string
	updateURL  string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSPARQLDriver creates a SPARQL driver. No request is made until the
// first call.
func NewSPARQLDriver(cfg SPARQLConfig) (*SPARQLDriver, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultSPARQLEndpoint
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultSPARQLDataset
	}
	base := strings.TrimRight(cfg.Endpoint, "/") + "/" + url.PathEscape(cfg.Dataset)
	if cfg.QueryURL == "" {
		cfg.QueryURL = base + "/query"
	}
	if cfg.UpdateURL == "" {
		cfg.UpdateURL = base + "/update"
	}
	for _, u := range []string{cfg.QueryURL, cfg.UpdateURL} {
		if _, err := url.ParseRequestURI(u); err != nil {
			return nil, fmt.Errorf("invalid SPARQL endpoint %q: %w", u, err)
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SPARQLDriver{
		queryURL:   cfg.QueryURL,
		updateURL:  cfg.UpdateURL,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Query implements FactQuerier.
func (d *SPARQLDriver) Query(ctx context.Context, q *Query) ([]Binding, error) {
	text, err := RenderSelect(q)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	var res sparqlResults
	if err := d.post(ctx, d.queryURL, "application/sparql-query", text, &res); err != nil {
		return nil, storeError(StoreProviderSPARQL, "query", err)
	}

	rows := make([]Binding, 0, len(res.Results.Bindings))
	for _, raw := range res.Results.Bindings {
		row := make(Binding, len(q.Select))
		for _, v := range q.Select {
			val, ok := raw[v]
			if !ok {
				continue
			}
			term, err := val.term()
			if err != nil {
				return nil, storeError(StoreProviderSPARQL, "query", err)
			}
			row[v] = term
		}
		rows = append(rows, row)
	}
	d.logger.Debug("sparql query", "rows", len(rows), "branches", len(q.Branches))
	return rows, nil
}

// Update implements FactUpdater.
func (d *SPARQLDriver) Update(ctx context.Context, u *Update) error {
	text, err := RenderUpdate(u)
	if err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}
	if text == "" {
		return nil
	}
	if err := d.post(ctx, d.updateURL, "application/sparql-update", text, nil); err != nil {
		return storeError(StoreProviderSPARQL, "update", err)
	}
	d.logger.Debug("sparql update", "cleared", len(u.Clear), "inserted", len(u.Insert))
	return nil
}

// Ping issues an ASK query.
func (d *SPARQLDriver) Ping(ctx context.Context) error {
	var res sparqlResults
	if err := d.post(ctx, d.queryURL, "application/sparql-query", renderAsk(), &res); err != nil {
		return storeError(StoreProviderSPARQL, "ping", err)
	}
	return nil
}

// Provider implements StoreClient.
func (d *SPARQLDriver) Provider() StoreProvider {
	return StoreProviderSPARQL
}

// Close releases idle connections.
func (d *SPARQLDriver) Close(ctx context.Context) error {
	d.httpClient.CloseIdleConnections()
	return nil
}

func (d *SPARQLDriver) post(ctx context.Context, endpoint, contentType, body string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType+"; charset=utf-8")
	if out != nil {
		req.Header.Set("Accept", sparqlResultsJSON)
	}
	if d.username != "" {
		req.SetBasicAuth(d.username, d.password)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", sparqlResultsJSON, err)
	}
	return nil
}

// sparqlResults is the SPARQL 1.1 Query Results JSON format.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`
}

type sparqlValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func (v sparqlValue) term() (types.Term, error) {
	switch v.Type {
	case "uri":
		return types.NewIRI(v.Value), nil
	case "bnode":
		return types.NewIRI("_:" + v.Value), nil
	case "literal", "typed-literal":
		if v.Lang != "" {
			return types.NewLiteral(v.Value, types.XSDString), nil
		}
		return types.NewLiteral(v.Value, v.Datatype), nil
	default:
		return types.Term{}, fmt.Errorf("unknown binding type %q", v.Type)
	}
}
