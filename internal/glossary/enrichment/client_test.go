package enrichment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"transmux/internal/glossary"
	"transmux/internal/glossary/enrichment"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := enrichment.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestFetchTermsDerivesTitleAndCharacters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			t.Fatalf("expected api_key query parameter, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/movie":
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":42,"title":"Gateway"}]}`))
		case "/movie/42/translations":
			_, _ = w.Write([]byte(`{"id":42,"translations":[
				{"iso_639_1":"fr","data":{"title":"Portail"}},
				{"iso_639_1":"es","data":{"title":"La Puerta"}}]}`))
		case "/movie/42/credits":
			_, _ = w.Write([]byte(`{"id":42,"cast":[
				{"name":"A","character":"Captain Rao","order":0},
				{"name":"B","character":"","order":1}]}`))
		default:
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client, err := enrichment.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	terms, err := client.FetchTerms(context.Background(), "Gateway", "es")
	if err != nil {
		t.Fatalf("FetchTerms returned error: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("got %d terms, want 2: %+v", len(terms), terms)
	}
	if terms[0].Source != "gateway" || terms[0].Translation != "La Puerta" || terms[0].Tier != glossary.TierEnrichment {
		t.Fatalf("unexpected title term %+v", terms[0])
	}
	if terms[1].Source != "captain rao" || terms[1].Translation != "Captain Rao" {
		t.Fatalf("unexpected character term %+v", terms[1])
	}
}

func TestFetchTermsNoMatchIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
	}))
	t.Cleanup(server.Close)

	client, err := enrichment.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	terms, err := client.FetchTerms(context.Background(), "Unknown", "es")
	if err != nil {
		t.Fatalf("FetchTerms returned error: %v", err)
	}
	if len(terms) != 0 {
		t.Fatalf("expected no terms, got %+v", terms)
	}
}

func TestFetchTermsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := enrichment.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchTerms(context.Background(), "Gateway", "es"); err == nil {
		t.Fatal("expected error when service returns non-200")
	}
}
