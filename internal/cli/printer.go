package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/booksflow/booksflow/internal/model"
)

// TierStyle returns the style used to render a confidence tier.
func TierStyle(tier model.Tier) lipgloss.Style {
	switch tier {
	case model.TierHigh:
		return SuccessStyle
	case model.TierMedium:
		return WarningStyle
	case model.TierLow:
		return InfoStyle
	default:
		return SubtleStyle
	}
}

// FormatReceipt renders a one-line receipt summary.
func FormatReceipt(receipt *model.Receipt) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", ReceiptIcon, BoldStyle.Render(receipt.FileName))

	if doc := receipt.Extracted; doc != nil {
		if doc.HasVendor() {
			fmt.Fprintf(&sb, "  %s", doc.Vendor)
		}
		if doc.HasAmount() {
			fmt.Fprintf(&sb, "  %.2f %s", *doc.Amount, doc.Currency)
		}
		if doc.HasDate() {
			fmt.Fprintf(&sb, "  %s", doc.Date.Format("2006-01-02"))
		}
		tier := model.ExtractionTier(doc.Confidence)
		fmt.Fprintf(&sb, "  %s", TierStyle(tier).Render(string(tier)))
	} else {
		fmt.Fprintf(&sb, "  %s", SubtleStyle.Render("(not extracted)"))
	}

	return sb.String()
}

// FormatMatches renders a ranked match result as a table with a best-match
// header line.
func FormatMatches(matches *model.RankedMatches) string {
	var sb strings.Builder

	if matches.Best != nil {
		style := TierStyle(matches.Best.Tier)
		sb.WriteString(fmt.Sprintf("%s best match: %s  score %.2f  %s\n\n",
			LinkIcon,
			BoldStyle.Render(matches.Best.EntryID),
			matches.Best.Score,
			style.Render(string(matches.Best.Tier))))
	} else {
		sb.WriteString(SubtleStyle.Render("no confident match found") + "\n\n")
	}

	if len(matches.Candidates) == 0 {
		sb.WriteString(SubtleStyle.Render("no candidates in window"))
		return sb.String()
	}

	header := fmt.Sprintf("%-4s %-22s %-12s %8s %28s",
		"#", "ENTRY", "DATE", "AMOUNT", "SCORE (amt/date/vendor)")
	sb.WriteString(TableHeaderStyle.Render(header) + "\n")

	for i, cand := range matches.Candidates {
		row := fmt.Sprintf("%-4d %-22s %-12s %8.2f %13.2f (%.2f/%.2f/%.2f)",
			i+1,
			truncate(cand.Entry.ID, 22),
			cand.Entry.Date.Format("2006-01-02"),
			cand.Entry.Amount,
			cand.Score,
			cand.Components.Amount,
			cand.Components.Date,
			cand.Components.Vendor)
		sb.WriteString(TableCellStyle.Render(row) + "\n")

		for _, reason := range cand.Reasons {
			sb.WriteString(SubtleStyle.Render("       · "+reason) + "\n")
		}
	}

	return sb.String()
}

// FormatSuggestion renders a categorization result.
func FormatSuggestion(description string, s model.CategorySuggestion) string {
	tier := model.ExtractionTier(s.Confidence)
	line := fmt.Sprintf("%s → %s  %.2f %s",
		truncate(description, 40),
		BoldStyle.Render(s.Category),
		s.Confidence,
		TierStyle(tier).Render(string(tier)))

	if s.Fallback {
		line += "  " + WarningStyle.Render("(fallback)")
	}
	if len(s.Alternatives) > 0 {
		line += "\n" + SubtleStyle.Render("   also: "+strings.Join(s.Alternatives, ", "))
	}
	return line
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
