package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/growex/quotebot/internal/domain"
)

const topEntryCount = 5

func renderView(report Report, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Shipment Quote Assistant")}

	empty := true

	for _, snapshot := range report.Aggregates {
		lines = append(lines, s.section.Render(renderAggregate(snapshot, s)))
		empty = false
	}

	for _, funnel := range report.Funnels {
		lines = append(lines, s.section.Render(renderFunnel(funnel, s)))
		empty = false
	}

	if report.Expiry != nil {
		lines = append(lines, s.section.Render(renderExpiry(*report.Expiry, s)))
		empty = false
	}

	if report.Leads != nil {
		lines = append(lines, s.section.Render(renderLeads(report.Leads, s)))
		empty = false
	}

	if report.Uploads != nil {
		lines = append(lines, s.section.Render(renderUploads(report.Uploads, s)))
		empty = false
	}

	if empty {
		lines = append(lines, s.empty.Render("Nothing to show."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAggregate(snapshot domain.AggregateSnapshot, s styles) string {
	parts := []string{
		s.window.Render(fmt.Sprintf("Analytics (%s)", snapshot.Window.Label())),
		keyValue(s, "calculations", fmt.Sprintf("%d", snapshot.Calculations)),
		keyValue(s, "leads", fmt.Sprintf("%d", snapshot.Leads)),
		keyValue(s, "uploads", fmt.Sprintf("%d", snapshot.Uploads)),
		keyValue(s, "conversion", fmt.Sprintf("%.1f%%", snapshot.ConversionRate)),
	}

	if snapshot.TotalVolume > 0 {
		parts = append(parts,
			keyValue(s, "total volume", fmt.Sprintf("%.1f m3", snapshot.TotalVolume)),
			keyValue(s, "average volume", fmt.Sprintf("%.1f m3", snapshot.AverageVolume)),
		)
	}

	if top := topCounts(snapshot.Cities); top != "" {
		parts = append(parts, keyValue(s, "top cities", top))
	}
	if top := topCounts(snapshot.CargoTypes); top != "" {
		parts = append(parts, keyValue(s, "cargo types", top))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// funnelStepOrder lists collection steps in conversation order so the funnel
// reads top to bottom.
var funnelStepOrder = []domain.Step{
	domain.StepFlowSelected,
	domain.StepVolume,
	domain.StepWeight,
	domain.StepDescription,
	domain.StepCity,
	domain.StepQuoteShown,
	domain.StepName,
	domain.StepContact,
	domain.StepCompany,
}

func renderFunnel(funnel domain.FunnelSnapshot, s styles) string {
	parts := []string{
		s.window.Render(fmt.Sprintf("Abandoned sessions (%s)", funnel.Window.Label())),
		keyValue(s, "total", fmt.Sprintf("%d", funnel.Total)),
	}

	for _, step := range funnelStepOrder {
		count, ok := funnel.BySteps[step]
		if !ok || count == 0 {
			continue
		}
		parts = append(parts, keyValue(s, stepLabel(step), fmt.Sprintf("%d", count)))
	}

	if funnel.Total == 0 {
		parts = append(parts, s.empty.Render("No abandoned sessions in this window."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderExpiry(report domain.ExpiryReport, s styles) string {
	parts := []string{s.window.Render("Rate table validity")}

	for _, status := range report.Statuses() {
		parts = append(parts, expiryLine(status, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func expiryLine(status domain.ExpiryStatus, s styles) string {
	label := s.key.Render(fmt.Sprintf("%s table:", tableLabel(status.Kind)))

	if status.ValidUntil == nil {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.empty.Render("no validity date"))
	}

	date := status.ValidUntil.Format("02 Jan 2006")
	switch {
	case status.Expired:
		text := fmt.Sprintf("expired %d day(s) ago (%s)", -status.DaysLeft, date)
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.critical.Render(text))
	case status.DaysLeft == 0:
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.warning.Render(fmt.Sprintf("expires today (%s)", date)))
	case status.DaysLeft <= 7:
		text := fmt.Sprintf("expires in %d day(s) (%s)", status.DaysLeft, date)
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.warning.Render(text))
	default:
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.ok.Render(fmt.Sprintf("valid until %s", date)))
	}
}

func renderLeads(leads []domain.Lead, s styles) string {
	parts := []string{s.window.Render(fmt.Sprintf("Recent leads (%d)", len(leads)))}

	if len(leads) == 0 {
		parts = append(parts, s.empty.Render("No leads recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	// Newest first.
	for i := len(leads) - 1; i >= 0; i-- {
		lead := leads[i]
		header := s.value.Render(fmt.Sprintf("%s  %s", lead.Timestamp.Format("02 Jan 15:04"), lead.ID))
		contact := s.detail.Render(fmt.Sprintf("  %s, %s", lead.Contact.Name, lead.Contact.Point.Value))
		if lead.Contact.Company != "" {
			contact += s.detail.Render(fmt.Sprintf(" (%s)", lead.Contact.Company))
		}
		parts = append(parts, header, contact, s.detail.Render("  "+cargoSummary(lead.Cargo, lead.Quote)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderUploads(uploads []domain.UploadRecord, s styles) string {
	parts := []string{s.window.Render(fmt.Sprintf("Recent uploads (%d)", len(uploads)))}

	if len(uploads) == 0 {
		parts = append(parts, s.empty.Render("No uploads recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	for i := len(uploads) - 1; i >= 0; i-- {
		upload := uploads[i]
		status := s.ok.Render(string(upload.Status))
		if upload.Status != domain.UploadSucceeded {
			status = s.critical.Render(string(upload.Status))
		}
		line := fmt.Sprintf("%s  %s (%s table) ", upload.Timestamp.Format("02 Jan 15:04"), upload.Filename, tableLabel(upload.Kind))
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, s.value.Render(line), status))
		if upload.Detail != "" {
			parts = append(parts, s.detail.Render("  "+upload.Detail))
		}
		if upload.Status == domain.UploadSucceeded {
			meta := fmt.Sprintf("  %d location(s)", upload.Locations)
			if upload.ValidUntil != nil {
				meta += ", valid until " + upload.ValidUntil.Format("02 Jan 2006")
			}
			parts = append(parts, s.detail.Render(meta))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func keyValue(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+": "), s.value.Render(value))
}

func tableLabel(kind domain.TariffKind) string {
	switch kind {
	case domain.TariffDirect:
		return "direct"
	case domain.TariffHub:
		return "hub"
	default:
		return string(kind)
	}
}

func stepLabel(step domain.Step) string {
	return strings.ReplaceAll(string(step), "_", " ")
}

func cargoSummary(cargo domain.CargoSpec, quote *domain.Quote) string {
	fields := make([]string, 0, 4)
	if cargo.City != "" {
		fields = append(fields, cargo.City)
	}
	if cargo.Volume != nil {
		fields = append(fields, fmt.Sprintf("%.1f m3", *cargo.Volume))
	}
	if cargo.Weight != nil {
		fields = append(fields, fmt.Sprintf("%.0f kg", *cargo.Weight))
	}
	if cargo.Description != "" {
		fields = append(fields, cargo.Description)
	}
	summary := strings.Join(fields, ", ")
	if quote != nil {
		summary += fmt.Sprintf(" -> %.0f %s", quote.Price, quote.Currency)
	}
	return summary
}

// topCounts renders a count map as "name (n), name (n)" for the highest few
// entries.
func topCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}

	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name: name, count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	if len(entries) > topEntryCount {
		entries = entries[:topEntryCount]
	}

	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		rendered = append(rendered, fmt.Sprintf("%s (%d)", e.name, e.count))
	}
	return strings.Join(rendered, ", ")
}
