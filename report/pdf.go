package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/voxhire/interviewd/domain"
)

// GeneratePDF renders a session report as a PDF document.
func GeneratePDF(session *domain.Session) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Interview Report "+session.SessionID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Interview Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	writeKV(pdf, "Session", session.SessionID)
	writeKV(pdf, "Role", session.JobRole)
	writeKV(pdf, "Date", session.CreatedAt.Format("2006-01-02 15:04"))
	writeKV(pdf, "Questions", fmt.Sprintf("%d planned, %d asked", session.QuestionCount, len(session.Questions)))
	pdf.Ln(4)

	if final := session.FinalEvaluation; final != nil {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Cell(0, 8, "Result")
		pdf.Ln(10)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, fmt.Sprintf("Overall: %.1f / 10  -  Verdict: %s", final.OverallScore, final.Verdict))
		pdf.Ln(10)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Metric Scores")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, metric := range domain.Metrics {
			pdf.CellFormat(70, 6, prettyMetric(metric), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", final.AggregatedMetrics[metric]), "1", 0, "R", false, 0, "")
			pdf.Ln(6)
		}
		pdf.Ln(4)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Insights")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		writeKV(pdf, "Strongest", prettyMetric(final.Insights.StrongestMetric))
		writeKV(pdf, "Weakest", prettyMetric(final.Insights.WeakestMetric))
		if len(final.Insights.CommonStrengths) > 0 {
			writeKV(pdf, "Strengths", strings.Join(final.Insights.CommonStrengths, "; "))
		}
		if len(final.Insights.CommonWeaknesses) > 0 {
			writeKV(pdf, "Weaknesses", strings.Join(final.Insights.CommonWeaknesses, "; "))
		}
		pdf.Ln(4)

		if suggestions := buildSuggestions(final.AggregatedMetrics); len(suggestions) > 0 {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.Cell(0, 7, "Suggestions")
			pdf.Ln(8)
			pdf.SetFont("Helvetica", "", 10)
			for _, s := range suggestions {
				pdf.MultiCell(0, 5, "- "+s, "", "L", false)
				pdf.Ln(1)
			}
			pdf.Ln(3)
		}
	}

	if len(session.EvaluationHistory) > 0 {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Cell(0, 8, "Question Breakdown")
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "", 10)
		for _, eval := range session.EvaluationHistory {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 5, fmt.Sprintf("Q%d: %s", eval.QuestionNumber, eval.Question), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, "A: "+truncate(eval.Answer, 600), "", "L", false)
			pdf.Cell(0, 5, fmt.Sprintf("Score: %.1f", eval.AverageScore()))
			pdf.Ln(8)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeKV(pdf *fpdf.Fpdf, key, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(28, 6, key+":")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, value, "", "L", false)
}

func prettyMetric(metric string) string {
	words := strings.Split(metric, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
