package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/timebird/internal/model"
)

func sampleData() []model.TimeEntry {
	day := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	yes := true

	return []model.TimeEntry{
		{
			ID:          "e1",
			Description: "worked on feature",
			Contact:     model.Ref{ID: "c1", Name: "Acme"},
			Project:     model.Ref{ID: "p1", Name: "Project Alpha"},
			StartedAt:   day,
			EndedAt:     day.Add(time.Hour),
			Billable:    &yes,
			URL:         "https://moneybird.com/42/time_entries/e1",
		},
		{
			ID:          "e2",
			Description: "review",
			Contact:     model.Ref{ID: "c2", Name: "Globex"},
			Project:     model.Ref{ID: "p2", Name: "Project Beta"},
			StartedAt:   day.Add(2 * time.Hour),
			EndedAt:     day.Add(2*time.Hour + 30*time.Minute),
		},
		{
			ID:          "e3",
			Description: "more feature work",
			Contact:     model.Ref{ID: "c1", Name: "Acme"},
			Project:     model.Ref{ID: "p1", Name: "Project Alpha"},
			StartedAt:   day.Add(24 * time.Hour),
			EndedAt:     day.Add(24*time.Hour + 45*time.Minute),
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")

	if err := ToCSV(sampleData(), path); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	expectedHeader := []string{"ID", "Description", "Contact", "Project", "Start", "End", "Duration", "Billable", "URL"}
	for i, h := range expectedHeader {
		if records[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	row := records[1]
	if row[0] != "e1" {
		t.Fatalf("ID = %q, want e1", row[0])
	}
	if row[3] != "Project Alpha" {
		t.Fatalf("Project = %q, want Project Alpha", row[3])
	}
	if row[6] != "1:00" {
		t.Fatalf("Duration = %q, want 1:00", row[6])
	}
	if row[7] != "yes" {
		t.Fatalf("Billable = %q, want yes", row[7])
	}
	if records[2][7] != "" {
		t.Fatalf("unset billable should be empty, got %q", records[2][7])
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := ToCSV(nil, path); err != nil {
		t.Fatal(err)
	}
	if records := readCSV(t, path); len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVUnknownProject(t *testing.T) {
	entries := []model.TimeEntry{{ID: "e1", StartedAt: time.Now(), EndedAt: time.Now()}}
	path := filepath.Join(t.TempDir(), "unknown.csv")

	if err := ToCSV(entries, path); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, path)
	if records[1][3] != "Unknown" {
		t.Fatalf("expected 'Unknown' for missing project, got %q", records[1][3])
	}
}

func TestToCSVBadPath(t *testing.T) {
	if err := ToCSV(nil, "/nonexistent/dir/file.csv"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToCSVSpecialCharacters(t *testing.T) {
	now := time.Now()
	entries := []model.TimeEntry{
		{
			ID:          "e1",
			Description: `notes with "quotes" and, commas`,
			Project:     model.Ref{ID: "p1", Name: `Project "Special"`},
			StartedAt:   now,
			EndedAt:     now,
		},
	}
	path := filepath.Join(t.TempDir(), "special.csv")

	if err := ToCSV(entries, path); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, path)
	if records[1][3] != `Project "Special"` {
		t.Fatalf("project name mangled: %q", records[1][3])
	}
	if records[1][1] != `notes with "quotes" and, commas` {
		t.Fatalf("description mangled: %q", records[1][1])
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")

	if err := ToJSON(sampleData(), path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.Count != 3 || len(result.Entries) != 3 {
		t.Fatalf("count = %d, entries = %d, want 3", result.Count, len(result.Entries))
	}
	if result.ExportedAt == "" {
		t.Fatal("exported_at should not be empty")
	}

	e := result.Entries[0]
	if e.ID != "e1" {
		t.Fatalf("ID = %q, want e1", e.ID)
	}
	if e.Project.Name != "Project Alpha" || e.Project.ID != "p1" {
		t.Fatalf("Project = %+v", e.Project)
	}
	if e.Duration != "1:00" {
		t.Fatalf("Duration = %q, want 1:00", e.Duration)
	}
	if e.Billable == nil || !*e.Billable {
		t.Fatal("billable should round-trip as true")
	}
	if result.Entries[1].Billable != nil {
		t.Fatal("unset billable should be omitted")
	}
}

func TestToJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	if err := ToJSON(nil, path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"entries": []`) {
		t.Fatalf("empty export should contain an empty entries array:\n%s", data)
	}
}

func TestToJSONBadPath(t *testing.T) {
	if err := ToJSON(nil, "/nonexistent/dir/file.json"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToJSONValidTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ts.json")
	ToJSON(sampleData(), path)

	data, _ := os.ReadFile(path)
	var result jsonExport
	json.Unmarshal(data, &result)

	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}
	for _, e := range result.Entries {
		if _, err := time.Parse(time.RFC3339, e.StartedAt); err != nil {
			t.Fatalf("started_at is not valid RFC3339: %q", e.StartedAt)
		}
	}
}

// ============================================================
// PDF
// ============================================================

func TestToPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")

	if err := ToPDF(sampleData(), path); err != nil {
		t.Fatalf("ToPDF: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Fatal("output is not a PDF")
	}
}

func TestToPDFEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	if err := ToPDF(nil, path); err != nil {
		t.Fatalf("ToPDF: %v", err)
	}
}

// ============================================================
// Helpers
// ============================================================

func TestProjectTotals(t *testing.T) {
	totals := ProjectTotals(sampleData())
	if len(totals) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(totals))
	}
	if totals[0].Name != "Project Alpha" || totals[0].Total != time.Hour+45*time.Minute {
		t.Fatalf("first total = %+v", totals[0])
	}
	if totals[1].Name != "Project Beta" || totals[1].Total != 30*time.Minute {
		t.Fatalf("second total = %+v", totals[1])
	}
}

func TestProjectTotalsClampsNegative(t *testing.T) {
	now := time.Now()
	totals := ProjectTotals([]model.TimeEntry{{Project: model.Ref{ID: "p"}, StartedAt: now, EndedAt: now.Add(-time.Hour)}})
	if totals[0].Total != 0 {
		t.Fatalf("negative span should count as zero, got %v", totals[0].Total)
	}
}

func TestPath(t *testing.T) {
	p, err := Path("csv", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "timebird-export-2024-03-05.csv" {
		t.Fatalf("unexpected path %q", p)
	}
}
