package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"shieldcare/internal/eligibility"
	"shieldcare/internal/health"
)

var stepLabels = []string{"Encrypt", "Encrypted", "Submit", "Decrypt", "Done"}

func placeholder(r health.Range) string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ShieldCare · private eligibility check"))
	b.WriteString("\n")
	b.WriteString(renderSteps(m.snap.Stage))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.snap.Message))
	b.WriteString("\n")

	for i, metric := range health.Metrics {
		b.WriteString(m.renderField(i, metric))
		b.WriteString("\n")
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	if m.snap.Encrypted.IsComplete() {
		b.WriteString(renderEncrypted(m.snap.Encrypted))
		b.WriteString("\n")
	}
	if m.snap.Receipt != nil {
		b.WriteString(renderReceipt(*m.snap.Receipt))
		b.WriteString("\n")
	}
	if m.snap.Result != nil {
		b.WriteString(renderResult(*m.snap.Result))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderField(i int, metric health.Metric) string {
	label := labelStyle
	if i == m.focus {
		label = focusedLabelStyle
	}
	name := metric.Label()
	if unit := metric.Unit(); unit != "" {
		name += " (" + unit + ")"
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		label.Render(name),
		m.inputs[i].View(),
	)
	if v, err := strconv.Atoi(strings.TrimSpace(m.inputs[i].Value())); err == nil {
		line += "  " + hintStyle.Render(health.Status(v, metric))
	}
	return line
}

func renderSteps(stage eligibility.Stage) string {
	current := stage.Step()
	parts := make([]string, 0, len(stepLabels))
	for i, label := range stepLabels {
		step := i + 1
		switch {
		case step < current || stage == eligibility.StageDone:
			parts = append(parts, stepDoneStyle.Render("● "+label))
		case step == current:
			parts = append(parts, stepActiveStyle.Render("◐ "+label))
		default:
			parts = append(parts, stepPendingStyle.Render("○ "+label))
		}
	}
	return strings.Join(parts, stepPendingStyle.Render(" ─ "))
}

func renderEncrypted(enc health.EncryptedInput) string {
	lines := []string{"Encrypted figures"}
	for _, metric := range health.Metrics {
		lines = append(lines, fmt.Sprintf("  %-24s %s", metric.Label(), shorten(string(enc.Get(metric)))))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderReceipt(r health.Receipt) string {
	return panelStyle.Render(strings.Join([]string{
		"Contract receipt",
		"  tx      " + shorten(r.TransactionHash),
		"  result  " + shorten(string(r.ResultCiphertext)),
		"  address " + r.ContractAddress,
		fmt.Sprintf("  block   %d", r.BlockNumber),
	}, "\n"))
}

func renderResult(res health.Result) string {
	verdict := notEligibleStyle.Render("NOT ELIGIBLE")
	if res.Eligible {
		verdict = eligibleStyle.Render("ELIGIBLE")
	}
	return panelStyle.Render(strings.Join([]string{
		verdict,
		check("Age over 60", res.Conditions.AgeCheck),
		check("Systolic BP over 140", res.Conditions.BPCheck),
		check("Blood sugar over 180", res.Conditions.BSCheck),
	}, "\n"))
}

func check(label string, ok bool) string {
	if ok {
		return stepDoneStyle.Render("  ✓ " + label)
	}
	return stepPendingStyle.Render("  ✗ " + label)
}

func shorten(s string) string {
	if len(s) <= 18 {
		return s
	}
	return s[:10] + "…" + s[len(s)-6:]
}
