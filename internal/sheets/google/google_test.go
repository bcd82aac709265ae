package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
)

func sampleTx() core.CommittedTransaction {
	return core.CommittedTransaction{
		ID:            7,
		PendingID:     3,
		AccountID:     1,
		Amount:        core.Money{Cents: -120000},
		Currency:      "EUR",
		CategoryID:    10,
		SubcategoryID: 11,
		Description:   "Rent",
		Date:          core.NewDate(2024, 3, 1),
	}
}

func TestLedgerRow(t *testing.T) {
	row := ledgerRow(sampleTx())
	want := []any{"2024-03-01", "Rent", "-1200.00", "EUR", int64(1), int64(10), "11", int64(7)}
	if len(row) != len(want) {
		t.Fatalf("row has %d columns, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d = %#v, want %#v", i, row[i], want[i])
		}
	}

	noSub := sampleTx()
	noSub.SubcategoryID = 0
	if got := ledgerRow(noSub)[6]; got != "" {
		t.Errorf("subcategory column = %#v, want empty", got)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{{"committed_id"}, {}, {"4"}, {" 7 "}}
	if got := findRow(values, 7); got != 4 {
		t.Errorf("findRow(7) = %d, want 4", got)
	}
	if got := findRow(values, 8); got != 0 {
		t.Errorf("findRow(8) = %d, want 0", got)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("New() error = %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("New() error = %v", err)
	}
}

// fakeSheets serves the two Values endpoints the exporter uses.
type fakeSheets struct {
	mu       sync.Mutex
	ids      []string
	appended [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		values := [][]string{{"committed_id"}}
		for _, id := range f.ids {
			values = append(values, []string{id})
		}
		json.NewEncoder(w).Encode(map[string]any{"range": "Ledger!H:H", "values": values})
	case http.MethodPost:
		if !strings.HasSuffix(r.URL.Path, ":append") {
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
			return
		}
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		row := body.Values[0]
		f.appended = append(f.appended, row)
		f.ids = append(f.ids, jsonString(row[7]))
		n := len(f.ids) + 1
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Ledger!A" + strconv.Itoa(n) + ":H" + strconv.Itoa(n)},
		})
	default:
		http.Error(w, "method", http.StatusMethodNotAllowed)
	}
}

func jsonString(v any) string {
	b, _ := json.Marshal(v)
	return strings.Trim(string(b), `"`)
}

func TestClient_ExportAppendsOnce(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	c, err := New(ctx, Options{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ref, err := c.Export(ctx, sampleTx())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "Ledger!A2:H2" {
		t.Errorf("ref = %q, want Ledger!A2:H2", ref)
	}

	ref, err = c.Export(ctx, sampleTx())
	if err != nil {
		t.Fatalf("second Export() error = %v", err)
	}
	if ref != "Ledger!A2:H2" {
		t.Errorf("re-export ref = %q, want existing row", ref)
	}
	if len(fake.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(fake.appended))
	}
	if got := fake.appended[0][1]; got != "Rent" {
		t.Errorf("description column = %#v", got)
	}
}

func TestClient_ExportRejectsUnsavedTransaction(t *testing.T) {
	c := &Client{spreadsheetID: "sheet"}
	if _, err := c.Export(context.Background(), core.CommittedTransaction{}); err == nil {
		t.Error("expected error")
	}
}
