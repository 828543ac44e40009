// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// # Description
//
// Chart specification builder. The tool parses inline CSV data, picks the
// first label column and first numeric column, and emits a renderer-ready
// ChartSpec plus statistical insights (mean, spread, trend) computed with
// gonum. No image is rendered server-side; clients draw from the spec.

package visualizer

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/AleutianAI/agentx/services/agent"
)

// Supported chart kinds.
var supportedCharts = map[string]bool{
	"bar": true, "line": true, "pie": true, "scatter": true, "histogram": true,
}

// ChartSpec is a renderer-agnostic chart description.
type ChartSpec struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Series string    `json:"series"`
	Values []float64 `json:"values"`
}

// Insights summarizes the plotted series.
type Insights struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// Slope is the least-squares trend per data point.
	Slope float64 `json:"slope"`
	Trend string  `json:"trend"`
}

// Result is the visualizer payload handed to the answer composer.
type Result struct {
	Spec     ChartSpec `json:"spec"`
	Insights Insights  `json:"insights"`
	// SampleData marks specs built from generated data because the
	// request carried no CSV.
	SampleData bool `json:"sample_data,omitempty"`
}

func (r Result) Summary() string {
	note := ""
	if r.SampleData {
		note = " (sample data; upload a CSV for your own numbers)"
	}
	return fmt.Sprintf("Prepared a %s chart of %q with %d points%s. "+
		"Mean %.2f, range %.2f to %.2f, trend %s.",
		r.Spec.Kind, r.Spec.Title, r.Insights.Count, note,
		r.Insights.Mean, r.Insights.Min, r.Insights.Max, r.Insights.Trend)
}

// Tool implements the visualizer capability. It is stateless.
type Tool struct{}

var _ agent.Tool = (*Tool)(nil)

func NewTool() *Tool { return &Tool{} }

func (*Tool) ID() agent.ToolID { return agent.ToolVisualizer }

func (*Tool) Invoke(_ context.Context, params map[string]string) (any, error) {
	kind := params["chart"]
	if kind == "" {
		kind = "bar"
	}
	if !supportedCharts[kind] {
		return nil, fmt.Errorf("%w: unsupported chart kind %q", agent.ErrToolInvalidParams, kind)
	}

	title := params["topic"]
	if title == "" {
		title = "data"
	}

	var (
		labels []string
		values []float64
		sample bool
		err    error
	)
	if csvData := params["csv"]; csvData != "" {
		labels, values, err = parseCSV(csvData)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", agent.ErrToolInvalidParams, err)
		}
	} else {
		labels, values = sampleSeries()
		sample = true
	}

	return Result{
		Spec: ChartSpec{
			Kind:   kind,
			Title:  title,
			Labels: labels,
			Series: title,
			Values: values,
		},
		Insights:   computeInsights(values),
		SampleData: sample,
	}, nil
}

// parseCSV extracts the first text column as labels and the first numeric
// column as values. A header row is detected by its non-numeric cells.
func parseCSV(data string) ([]string, []float64, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(data)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("CSV contains no rows")
	}

	start := 0
	if !rowHasNumber(rows[0]) && len(rows) > 1 {
		start = 1 // header row
	}
	numericCol := -1
	for col := range rows[start] {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[start][col]), 64); err == nil {
			numericCol = col
			break
		}
	}
	if numericCol < 0 {
		return nil, nil, fmt.Errorf("CSV has no numeric column")
	}
	labelCol := 0
	if labelCol == numericCol {
		labelCol = -1
	}

	var labels []string
	var values []float64
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if numericCol >= len(row) {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[numericCol]), 64)
		if err != nil {
			continue
		}
		label := fmt.Sprintf("row %d", len(values)+1)
		if labelCol >= 0 && labelCol < len(row) {
			label = strings.TrimSpace(row[labelCol])
		}
		labels = append(labels, label)
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("CSV has no parseable data rows")
	}
	return labels, values, nil
}

func rowHasNumber(row []string) bool {
	for _, cell := range row {
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
			return true
		}
	}
	return false
}

// sampleSeries is the deterministic placeholder used when the request
// carries no CSV data.
func sampleSeries() ([]string, []float64) {
	return []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"},
		[]float64{120, 135, 128, 150, 162, 171}
}

func computeInsights(values []float64) Insights {
	n := len(values)
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	mean, std := stat.MeanStdDev(values, nil)
	var slope float64
	if n > 1 {
		_, slope = stat.LinearRegression(xs, values, nil, false)
	}

	trend := "flat"
	switch {
	case slope > 0.01*(max-min+1):
		trend = "rising"
	case slope < -0.01*(max-min+1):
		trend = "falling"
	}

	insights := Insights{
		Count: n,
		Mean:  mean,
		Min:   min,
		Max:   max,
		Slope: slope,
		Trend: trend,
	}
	if n > 1 {
		insights.StdDev = std
	}
	return insights
}
