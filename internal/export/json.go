package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/timebird/internal/model"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Entries    []jsonEntry `json:"entries"`
}

type jsonRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type jsonEntry struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Contact     jsonRef `json:"contact"`
	Project     jsonRef `json:"project"`
	StartedAt   string  `json:"started_at"`
	EndedAt     string  `json:"ended_at"`
	Duration    string  `json:"duration"`
	Billable    *bool   `json:"billable,omitempty"`
	URL         string  `json:"url,omitempty"`
}

func ToJSON(entries []model.TimeEntry, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(entries),
		Entries:    []jsonEntry{},
	}

	for _, e := range entries {
		export.Entries = append(export.Entries, jsonEntry{
			ID:          e.ID,
			Description: e.Description,
			Contact:     jsonRef{ID: e.Contact.ID, Name: e.Contact.Name},
			Project:     jsonRef{ID: e.Project.ID, Name: e.Project.Name},
			StartedAt:   e.StartedAt.UTC().Format(time.RFC3339),
			EndedAt:     e.EndedAt.UTC().Format(time.RFC3339),
			Duration:    e.Duration(),
			Billable:    e.Billable,
			URL:         e.URL,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
