// Package report renders explanations as Markdown and standalone HTML.
package report

import (
	"fmt"
	"sort"
	"strings"

	"anomalyexplain/domain/explanation"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders one explanation
func Markdown(exp *explanation.Explanation) string {
	var b strings.Builder
	writeExplanation(&b, exp, "#")
	return b.String()
}

// BatchMarkdown renders a batch followed by its importance summary
func BatchMarkdown(exps []*explanation.Explanation, summary []explanation.FeatureImportance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Anomaly explanations (%d samples)\n\n", len(exps))

	if len(summary) > 0 {
		b.WriteString("## Feature importance\n\n")
		b.WriteString("| Feature | Mean contribution | Explanations |\n")
		b.WriteString("|---|---:|---:|\n")
		for _, row := range summary {
			fmt.Fprintf(&b, "| %s | %.3f | %d |\n", escapeCell(row.Feature), row.Importance, row.Count)
		}
		b.WriteString("\n")
	}

	for _, exp := range exps {
		writeExplanation(&b, exp, "##")
	}
	return b.String()
}

// HTML renders one explanation as a complete HTML page
func HTML(exp *explanation.Explanation) []byte {
	title := "Anomaly explanation"
	if exp != nil {
		title = fmt.Sprintf("Anomaly explanation: %s", exp.SampleID)
	}
	return toHTML(Markdown(exp), title)
}

// BatchHTML renders a batch report as a complete HTML page
func BatchHTML(exps []*explanation.Explanation, summary []explanation.FeatureImportance) []byte {
	return toHTML(BatchMarkdown(exps, summary), "Anomaly explanations")
}

func toHTML(md string, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func writeExplanation(b *strings.Builder, exp *explanation.Explanation, heading string) {
	if exp == nil {
		return
	}
	fmt.Fprintf(b, "%s Sample %s\n\n", heading, exp.SampleID)
	fmt.Fprintf(b, "**Risk score:** %.2f\n\n", exp.RiskScore)

	sub := heading + "#"
	fmt.Fprintf(b, "%s Primary reasons\n\n", sub)
	writeList(b, exp.PrimaryReasons, "_No anomalous signals found._")

	if exp.FeatureContributions.Len() > 0 {
		fmt.Fprintf(b, "%s Feature contributions\n\n", sub)
		b.WriteString("| Feature | Contribution |\n|---|---:|\n")
		exp.FeatureContributions.Each(func(key string, score float64) {
			fmt.Fprintf(b, "| %s | %.3f |\n", escapeCell(key), score)
		})
		b.WriteString("\n")
	}

	if len(exp.StatisticalDeviations) > 0 {
		fmt.Fprintf(b, "%s Statistical deviations\n\n", sub)
		b.WriteString("| Feature | Value | Mean | Std | Z-score | Percentile |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|\n")
		names := make([]string, 0, len(exp.StatisticalDeviations))
		for name := range exp.StatisticalDeviations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			d := exp.StatisticalDeviations[name]
			fmt.Fprintf(b, "| %s | %.4g | %.4g | %.4g | %.2f | %.1f |\n",
				escapeCell(name), d.SampleValue, d.ReferenceMean, d.ReferenceStd, d.ZScore, d.Percentile)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "%s Recommendations\n\n", sub)
	writeList(b, exp.Recommendations, "_None._")
}

func writeList(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		b.WriteString(empty + "\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// escapeCell keeps feature names from breaking table rows
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
