package main

import (
	"fmt"
	"strconv"

	"clipcontext/internal/pipeline"
	"clipcontext/internal/services"
)

func renderSummary(report pipeline.Report, workDir string, kept bool, outputPath string) string {
	matched := 0
	for _, entry := range report.Entries {
		if entry.Matched {
			matched++
		}
	}
	rows := [][]string{
		{"Duration", fmt.Sprintf("%.1fs (%s)", report.Duration.Seconds, report.Duration.Source)},
		{"Frames", strconv.Itoa(report.Document.FrameCount)},
		{"Frames with speech", strconv.Itoa(matched)},
		{"Audio", string(report.Audio.Status)},
		{"Transcription attempts", strconv.Itoa(report.Transcription.Attempts)},
		{"Document size", formatBytes(int64(len(report.Document.Text)))},
		{"Artifacts kept", yesNo(kept)},
	}
	if kept {
		rows = append(rows, []string{"Work dir", workDir})
	}
	if outputPath != "" {
		rows = append(rows, []string{"Written to", outputPath})
	}
	for _, warning := range report.Warnings {
		rows = append(rows, []string{"Warning", services.Kind(warning)})
	}
	return renderTable([]string{"Item", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
