package datasets

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boardgamestats/plugins/boardgames"
)

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerListsTemplates(t *testing.T) {
	h := NewHandler(newCatalog(t, 120))
	rec := do(h, http.MethodGet, "/api/v1/datasets/templates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Templates []struct {
			Slug string `json:"slug"`
		} `json:"templates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Templates) != 6 {
		t.Fatalf("expected 6 templates, got %d", len(payload.Templates))
	}
}

func TestHandlerTemplateLookup(t *testing.T) {
	h := NewHandler(newCatalog(t, 120))
	rec := do(h, http.MethodGet, "/api/v1/datasets/templates/boardgames/rating_distribution/1.0.0", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), boardgames.Slug(boardgames.KeyRatingDistribution)) {
		t.Fatalf("unexpected lookup response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, http.MethodGet, "/api/v1/datasets/templates/boardgames/missing/1.0.0", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown template, got %d", rec.Code)
	}
	if rec := do(h, http.MethodDelete, "/api/v1/datasets/templates/boardgames/rating_distribution/1.0.0", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandlerValidate(t *testing.T) {
	h := NewHandler(newCatalog(t, 120))
	rec := do(h, http.MethodPost, "/api/v1/datasets/templates/boardgames/rating_distribution/1.0.0/validate", `{"parameters":{"bins":0}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			Name string `json:"name"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Valid || len(resp.Errors) != 1 || resp.Errors[0].Name != "bins" {
		t.Fatalf("expected bins error, got %+v", resp)
	}
}

func TestHandlerRunJSON(t *testing.T) {
	h := NewHandler(newCatalog(t, 120))
	rec := do(h, http.MethodPost, "/api/v1/datasets/templates/boardgames/rating_distribution/1.0.0/run", `{"parameters":{"bins":5},"scope":{"requestor":"tester"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Scope struct {
			Requestor string `json:"requestor"`
		} `json:"scope"`
		Result struct {
			Rows []map[string]any `json:"rows"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Scope.Requestor != "tester" {
		t.Fatalf("scope not echoed: %+v", resp.Scope)
	}
	if len(resp.Result.Rows) != 5 {
		t.Fatalf("expected 5 bins, got %d", len(resp.Result.Rows))
	}
	var total float64
	for _, row := range resp.Result.Rows {
		total += row["count"].(float64)
	}
	if total != 120 {
		t.Fatalf("histogram counts sum to %v, want 120", total)
	}
}

func TestHandlerRunCSV(t *testing.T) {
	h := NewHandler(newCatalog(t, 120))
	rec := do(h, http.MethodPost, "/api/v1/datasets/templates/boardgames/era_comparison/1.0.0/run?format=csv", `{"parameters":{"threshold_older":1900}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "label,threshold,side,rows,mean_rating\n") {
		t.Fatalf("unexpected header: %q", body)
	}
	if !strings.Contains(body, "no data") {
		t.Fatalf("expected empty era to render as no data: %q", body)
	}
}

func TestHandlerRunRejectsInvalidInput(t *testing.T) {
	h := NewHandler(newCatalog(t, 120))
	rec := do(h, http.MethodPost, "/api/v1/datasets/templates/boardgames/rating_distribution/1.0.0/run", `{"parameters":{"bins":500}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range bins, got %d", rec.Code)
	}
	rec = do(h, http.MethodPost, "/api/v1/datasets/templates/boardgames/era_scatter/1.0.0/run", `{"parameters":{"sample_size":500}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for sample larger than table, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(h, http.MethodPost, "/api/v1/datasets/templates/boardgames/rating_distribution/1.0.0/run?format=parquet", `{}`)
	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406 for parquet run, got %d", rec.Code)
	}
	rec = do(h, http.MethodPost, "/api/v1/datasets/templates/boardgames/rating_distribution/1.0.0/run", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandlerExportsDisabledWithoutScheduler(t *testing.T) {
	h := NewHandler(newCatalog(t, 120))
	if rec := do(h, http.MethodPost, "/api/v1/datasets/exports", `{}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without scheduler, got %d", rec.Code)
	}
}
