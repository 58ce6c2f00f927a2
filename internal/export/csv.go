package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/timebird/internal/model"
)

func ToCSV(entries []model.TimeEntry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	// Header
	if err := w.Write([]string{"ID", "Description", "Contact", "Project", "Start", "End", "Duration", "Billable", "URL"}); err != nil {
		return err
	}

	for _, e := range entries {
		row := []string{
			e.ID,
			e.Description,
			e.Contact.Name,
			projectName(e),
			e.StartedAt.Local().Format(time.RFC3339),
			e.EndedAt.Local().Format(time.RFC3339),
			e.Duration(),
			billableString(e.Billable),
			e.URL,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
