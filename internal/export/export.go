// Package export writes loaded time entries to CSV, JSON or PDF files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sadopc/timebird/internal/model"
)

// Path returns ~/timebird-export-YYYY-MM-DD.<ext> for the day of now.
func Path(ext string, now time.Time) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, fmt.Sprintf("timebird-export-%s.%s", now.Format("2006-01-02"), ext)), nil
}

func billableString(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "yes"
	}
	return "no"
}

func projectName(e model.TimeEntry) string {
	if e.Project.Name != "" {
		return e.Project.Name
	}
	if e.Project.ID != "" {
		return e.Project.ID
	}
	return "Unknown"
}

// ProjectTotal is the tracked time of one project.
type ProjectTotal struct {
	Name  string
	Total time.Duration
}

// ProjectTotals sums entry durations per project, largest first. Entries
// that end before they start count as zero.
func ProjectTotals(entries []model.TimeEntry) []ProjectTotal {
	sums := map[string]time.Duration{}
	for _, e := range entries {
		d := e.EndedAt.Sub(e.StartedAt)
		if d < 0 {
			d = 0
		}
		sums[projectName(e)] += d
	}

	totals := make([]ProjectTotal, 0, len(sums))
	for name, d := range sums {
		totals = append(totals, ProjectTotal{Name: name, Total: d})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Name < totals[j].Name
	})
	return totals
}
