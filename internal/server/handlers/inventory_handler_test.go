package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jdsmith2004/stockroom/internal/repository"
	"github.com/jdsmith2004/stockroom/internal/repository/memory"
	"github.com/jdsmith2004/stockroom/internal/server/handlers"
	"github.com/jdsmith2004/stockroom/internal/server/router"
	"github.com/jdsmith2004/stockroom/internal/service/audit"
	"github.com/jdsmith2004/stockroom/internal/service/ledger"
	"github.com/jdsmith2004/stockroom/internal/service/query"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	recorder := audit.NewRecorder(store, nil, nil)
	ledgerSvc := ledger.NewService(store, recorder, 0, nil)
	querySvc := query.NewService(store, nil)
	handler := handlers.NewInventoryHandler(ledgerSvc, querySvc, nil)

	srv := httptest.NewServer(router.New(handler, nil))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON posts body (if any) and asserts the status code, decoding the
// response into out when provided.
func doJSON(t *testing.T, method, url string, body any, wantCode int, out any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		t.Fatalf("%s %s: code=%d want=%d", method, url, resp.StatusCode, wantCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
}

type itemBody struct {
	Item struct {
		Name    string `json:"name"`
		Qty     int64  `json:"qty"`
		Popular bool   `json:"popular"`
	} `json:"item"`
}

type listBody struct {
	Items []struct {
		Name string `json:"name"`
		Qty  int64  `json:"qty"`
	} `json:"items"`
}

func TestInventoryFlow(t *testing.T) {
	srv := newServer(t)

	create := map[string]any{"name": "Widget", "price": "9.99", "popular": true, "qty": 5}
	var created itemBody
	doJSON(t, http.MethodPost, srv.URL+"/items", create, http.StatusCreated, &created)
	if created.Item.Name != "Widget" || created.Item.Qty != 5 {
		t.Fatalf("created=%+v", created.Item)
	}

	// Duplicate name conflicts without touching the record.
	doJSON(t, http.MethodPost, srv.URL+"/items", create, http.StatusConflict, nil)

	var after itemBody
	doJSON(t, http.MethodPost, srv.URL+"/items/Widget/add", map[string]any{"amount": 3}, http.StatusOK, &after)
	if after.Item.Qty != 8 {
		t.Fatalf("qty=%d want=8", after.Item.Qty)
	}

	doJSON(t, http.MethodPost, srv.URL+"/items/Widget/use", map[string]any{"amount": 8}, http.StatusOK, &after)
	if after.Item.Qty != 0 {
		t.Fatalf("qty=%d want=0", after.Item.Qty)
	}

	// Draining beyond stock conflicts.
	doJSON(t, http.MethodPost, srv.URL+"/items/Widget/use", map[string]any{"amount": 1}, http.StatusConflict, nil)

	var zero listBody
	doJSON(t, http.MethodGet, srv.URL+"/items?filter=out-of-stock", nil, http.StatusOK, &zero)
	if len(zero.Items) != 1 || zero.Items[0].Name != "Widget" {
		t.Fatalf("zero-stock=%+v", zero.Items)
	}

	doJSON(t, http.MethodDelete, srv.URL+"/items/Widget", nil, http.StatusNoContent, nil)
	doJSON(t, http.MethodDelete, srv.URL+"/items/Widget", nil, http.StatusNotFound, nil)
	doJSON(t, http.MethodGet, srv.URL+"/items/Widget", nil, http.StatusNotFound, nil)
}

func TestBadRequests(t *testing.T) {
	srv := newServer(t)

	// Missing name.
	doJSON(t, http.MethodPost, srv.URL+"/items", map[string]any{"qty": 1}, http.StatusBadRequest, nil)
	// Unknown filter selector.
	doJSON(t, http.MethodGet, srv.URL+"/items?filter=everything", nil, http.StatusBadRequest, nil)
	// Negative amount.
	doJSON(t, http.MethodPost, srv.URL+"/items", map[string]any{"name": "Bolt", "price": "1", "qty": 2}, http.StatusCreated, nil)
	doJSON(t, http.MethodPost, srv.URL+"/items/Bolt/add", map[string]any{"amount": -2}, http.StatusBadRequest, nil)
	// Mutating an absent item.
	doJSON(t, http.MethodPost, srv.URL+"/items/ghost/add", map[string]any{"amount": 2}, http.StatusNotFound, nil)
}

// downStore fails every transaction as if the database were unreachable.
type downStore struct {
	*memory.Store
}

func (s *downStore) RunTransaction(context.Context, func(repository.Tx) error) error {
	return repository.ErrUnavailable
}

func TestStorageOutageMapsToServiceUnavailable(t *testing.T) {
	store := &downStore{Store: memory.NewStore()}
	recorder := audit.NewRecorder(store, nil, nil)
	ledgerSvc := ledger.NewService(store, recorder, 0, nil)
	querySvc := query.NewService(store, nil)
	srv := httptest.NewServer(router.New(handlers.NewInventoryHandler(ledgerSvc, querySvc, nil), nil))
	t.Cleanup(srv.Close)

	create := map[string]any{"name": "Widget", "price": "1", "qty": 1}
	doJSON(t, http.MethodPost, srv.URL+"/items", create, http.StatusServiceUnavailable, nil)
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, http.StatusOK, nil)
}
