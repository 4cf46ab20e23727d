package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
)

func TestIntrospectionRoutes(t *testing.T) {
	env := newTestEnv(t)
	p := env.createMemoryProfile(t, "scratch")
	base := "/api/v1/connections/" + p.ID

	if w := env.do(t, http.MethodGet, base+"/schemas", nil); w.Code != http.StatusConflict {
		t.Fatalf("schemas before acquire: status %d, want 409", w.Code)
	}

	env.do(t, http.MethodPost, base+"/acquire", nil)
	env.do(t, http.MethodPost, base+"/query", QueryRequest{SQL: "CREATE TABLE orders (id INTEGER PRIMARY KEY, note VARCHAR)"})

	w := env.do(t, http.MethodGet, base+"/schemas", nil)
	schemas := decode[map[string][]string](t, w)["schemas"]
	if !strings.Contains(strings.Join(schemas, ","), "main") {
		t.Errorf("schemas = %v", schemas)
	}

	w = env.do(t, http.MethodGet, base+"/tables/main/orders/columns", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("columns: status %d body %s", w.Code, w.Body.String())
	}
	cols := decode[map[string][]engine.ColumnInfo](t, w)["columns"]
	if len(cols) != 2 || cols[0].Name != "id" || cols[1].Name != "note" {
		t.Errorf("columns = %+v", cols)
	}

	w = env.do(t, http.MethodGet, base+"/tables/main/orders/constraints", nil)
	cons := decode[map[string][]engine.Constraint](t, w)["constraints"]
	found := false
	for _, c := range cons {
		if c.Type == "PRIMARY KEY" {
			found = true
		}
	}
	if !found {
		t.Errorf("constraints = %+v, want a primary key", cons)
	}

	w = env.do(t, http.MethodGet, base+"/extensions", nil)
	if exts := decode[map[string][]engine.Extension](t, w)["extensions"]; len(exts) == 0 {
		t.Error("no extensions listed")
	}

	w = env.do(t, http.MethodPost, base+"/extensions/Bad-Name/install", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("install invalid name: status %d, want 400", w.Code)
	}
}

func TestExportRoute(t *testing.T) {
	env := newTestEnv(t)
	p := env.createMemoryProfile(t, "scratch")
	base := "/api/v1/connections/" + p.ID
	env.do(t, http.MethodPost, base+"/acquire", nil)

	path := filepath.Join(t.TempDir(), "range.csv")
	w := env.do(t, http.MethodPost, base+"/export", ExportRequest{
		SQL:           "SELECT range AS n FROM range(500)",
		Path:          path,
		ExportOptions: engine.ExportOptions{Delimiter: "|"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("export: status %d body %s", w.Code, w.Body.String())
	}
	res := decode[ExportResponse](t, w)
	// Exports bypass the 100-row query cap of the test engine.
	if res.Rows != 500 || res.Format != engine.ExportCSV {
		t.Errorf("export response = %+v", res)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "n\n0\n") {
		t.Errorf("csv starts %q", string(data)[:min(20, len(data))])
	}

	w = env.do(t, http.MethodPost, base+"/export", ExportRequest{SQL: "SELECT 1", Path: "relative.csv"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("relative path: status %d, want 400", w.Code)
	}
	w = env.do(t, http.MethodPost, base+"/export", ExportRequest{SQL: "DROP TABLE x", Path: path})
	if w.Code != http.StatusBadRequest {
		t.Errorf("ddl export: status %d, want 400", w.Code)
	}
}

func TestConnectionEventsSnapshotIsEvent(t *testing.T) {
	env := newTestEnv(t)
	p := env.createMemoryProfile(t, "scratch")
	env.do(t, http.MethodPost, "/api/v1/connections/"+p.ID+"/acquire", nil)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/connections/events"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev conn.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.ID != conn.ResourceID(p.ID) || ev.Status != conn.StatusConnected || ev.Time.IsZero() {
		t.Errorf("snapshot frame = %s", data)
	}
}
