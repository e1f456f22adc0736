package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/civic/internal/history"
	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/store"
)

// seedFixtureDB writes a recent-search list into the data dir under homeDir.
func seedFixtureDB(homeDir string) error {
	dataDir := filepath.Join(homeDir, ".civic")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	st, err := store.Open(filepath.Join(dataDir, "civic.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	return history.New(st).Add("fixture mayor")
}

// fixtureBackend serves a fixed candidate list and one report.
func fixtureBackend() *httptest.Server {
	now := time.Now().UTC()
	entities := []model.Entity{
		{ID: "e1", Name: "Fixture Maria Santos", Party: "Fixture Party", Position: "Mayor", CreatedAt: now},
		{ID: "e2", Name: "Fixture John Smith", Party: "Other Party", Position: "Governor", CreatedAt: now},
	}
	report := model.Report{
		ID:        "r1",
		Position:  "Supports fixture zoning reform.",
		Summary:   "A deterministic report for UI tests.",
		Freshness: model.Freshness{IsFresh: true},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/politicians", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, entities)
	})
	mux.HandleFunc("GET /api/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, report)
	})
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
