package export

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"github.com/sadopc/timebird/internal/model"
)

var tableProps = props.TableList{
	HeaderProp: props.TableListContent{
		Size:      9,
		GridSizes: []uint{2, 4, 2, 2, 2},
	},
	ContentProp: props.TableListContent{
		Size:      9,
		GridSizes: []uint{2, 4, 2, 2, 2},
	},
	Align:                consts.Left,
	AlternatedBackground: &color.Color{Red: 240, Green: 240, Blue: 240},
	HeaderContentSpace:   1,
	Line:                 false,
}

// ToPDF writes a report with one row per entry followed by per-project
// totals.
func ToPDF(entries []model.TimeEntry, path string) error {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 10, 20)

	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text("Time entries", props.Text{
					Top:   3,
					Style: consts.Bold,
					Align: consts.Center,
					Size:  16,
				})
			})
		})
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(dateRange(entries), props.Text{
					Top:   1,
					Align: consts.Center,
					Size:  11,
				})
			})
		})
	})

	headers := []string{"Date", "Description", "Contact", "Project", "Duration"}
	rows := make([][]string, 0, len(entries))
	var total time.Duration
	for _, e := range entries {
		if d := e.EndedAt.Sub(e.StartedAt); d > 0 {
			total += d
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02"),
			e.Description,
			e.Contact.Name,
			projectName(e),
			e.Duration(),
		})
	}
	if len(rows) > 0 {
		m.TableList(headers, rows, tableProps)
	}

	totals := ProjectTotals(entries)
	if len(totals) > 0 {
		m.Row(12, func() {
			m.Col(12, func() {
				m.Text("Per project", props.Text{Top: 6, Style: consts.Bold, Size: 12})
			})
		})
		for _, pt := range totals {
			m.Row(6, func() {
				m.Col(9, func() {
					m.Text(pt.Name, props.Text{Size: 10})
				})
				m.Col(3, func() {
					m.Text(model.FormatDuration(pt.Total), props.Text{Size: 10, Align: consts.Right})
				})
			})
		}
	}

	m.Row(20, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Total: %s", model.FormatDuration(total)), props.Text{
				Top:   10,
				Style: consts.Bold,
				Align: consts.Right,
				Size:  12,
			})
		})
	})

	return m.OutputFileAndClose(path)
}

func dateRange(entries []model.TimeEntry) string {
	if len(entries) == 0 {
		return "No entries"
	}
	first, last := entries[0].StartedAt, entries[0].StartedAt
	for _, e := range entries[1:] {
		if e.StartedAt.Before(first) {
			first = e.StartedAt
		}
		if e.StartedAt.After(last) {
			last = e.StartedAt
		}
	}
	return fmt.Sprintf("%s - %s", first.Local().Format("2006-01-02"), last.Local().Format("2006-01-02"))
}
