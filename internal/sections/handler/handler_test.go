package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/history"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections"
)

type staticDocs []document.Document

func (s staticDocs) Snapshot() ([]document.Document, string) { return s, "fp" }

func newServer(t *testing.T, docs staticDocs) *httptest.Server {
	t.Helper()
	svc := sections.NewService(docs, retrieval.NewEngine(), history.NewLedger(), 3, sections.Options{})
	h := New(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("POST /generate-section", h.Generate)
	mux.HandleFunc("GET /history/{company_id}", h.History)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var docs = staticDocs{
	{ID: "d1", CompanyID: "acme", SectionType: "summary", Language: "en", Text: "alpha beta"},
	{ID: "d2", CompanyID: "acme", SectionType: "summary", Language: "en", Text: "gamma"},
}

func post(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/generate-section", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRoot(t *testing.T) {
	srv := newServer(t, docs)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"message": "Grantbot Backend API", "status": "running"}, body)
}

func TestGenerateThenHistory(t *testing.T) {
	srv := newServer(t, docs)

	resp, body := post(t, srv, `{"company_id":"acme","section_type":"summary","text":"beta"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, []any{"d1", "d2"}, body["sources"])
	for _, k := range []string{"company_id", "section_type", "generated_text", "sources", "request_id", "created_at"} {
		assert.Contains(t, body, k)
	}

	hresp, err := http.Get(srv.URL + "/history/acme")
	require.NoError(t, err)
	defer hresp.Body.Close()
	var entries []map[string]any
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, body["request_id"], entries[0]["request_id"])
	assert.Equal(t, body["created_at"], entries[0]["created_at"])
	assert.Equal(t, []any{"d1", "d2"}, entries[0]["sources"])
}

func TestHistory_UnknownCompanyIsEmptyArray(t *testing.T) {
	srv := newServer(t, docs)
	resp, err := http.Get(srv.URL + "/history/unknown-co")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestGenerate_ValidationErrors(t *testing.T) {
	srv := newServer(t, docs)

	resp, body := post(t, srv, `{"company_id":"acme","section_type":"summary"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation failed", body["detail"])
	assert.Equal(t, map[string]any{"text": "field required"}, body["fields"])

	resp, body = post(t, srv, `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "fields")

	// Nothing was recorded.
	hresp, err := http.Get(srv.URL + "/history/acme")
	require.NoError(t, err)
	defer hresp.Body.Close()
	var entries []any
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&entries))
	assert.Empty(t, entries)
}

func TestGenerate_EmptyStore(t *testing.T) {
	srv := newServer(t, staticDocs{})
	resp, body := post(t, srv, `{"company_id":"acme","section_type":"summary","text":"beta"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, sections.NoDocumentsMessage, body["detail"])
}

func TestGenerate_UnknownCompanyNoError(t *testing.T) {
	srv := newServer(t, docs)
	resp, body := post(t, srv, `{"company_id":"initech","section_type":"risks","text":""}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["sources"], 2)
}
