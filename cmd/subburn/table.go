package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"subburn/internal/pipeline"
	"subburn/internal/tmcache"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderRunSummary prints a two-column table describing a finished job.
func renderRunSummary(result pipeline.Result, translated bool) string {
	rows := [][]string{{"Run ID", result.RunID}}
	if translated {
		report := result.Report
		rows = append(rows,
			[]string{"Encoding", result.Encoding},
			[]string{"Batches", strconv.Itoa(report.Batches)},
			[]string{"Lines translated", strconv.Itoa(report.TranslatedLines)},
			[]string{"Lines kept (fallback)", strconv.Itoa(report.FallbackLines)},
			[]string{"Cache hits", strconv.Itoa(report.CacheHits)},
			[]string{"LLM attempts", strconv.Itoa(report.Attempts)},
			[]string{"Subtitle output", result.SubtitlePath},
		)
	}
	if result.Burned {
		rows = append(rows,
			[]string{"Video output", result.VideoPath},
			[]string{"Verified", yesNo(result.Verified)},
		)
	}
	rows = append(rows, []string{"Elapsed", result.Elapsed.Round(time.Millisecond).String()})
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

// renderCacheStats lists the translation memory per language pair and model.
func renderCacheStats(stats tmcache.Stats) string {
	rows := make([][]string, 0, len(stats.Pairs)+1)
	for _, pair := range stats.Pairs {
		rows = append(rows, []string{
			pair.Source + " → " + pair.Target,
			pair.Model,
			strconv.Itoa(pair.Entries),
			strconv.FormatInt(pair.Hits, 10),
		})
	}
	rows = append(rows, []string{"total", "", strconv.Itoa(stats.Entries), strconv.FormatInt(stats.Hits, 10)})
	return renderTable(
		[]string{"Pair", "Model", "Entries", "Hits"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}
