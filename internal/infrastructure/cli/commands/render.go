package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/doeshing/phishnet-go/internal/domain"
)

var (
	safeColor       = color.New(color.FgGreen, color.Bold)
	suspiciousColor = color.New(color.FgYellow, color.Bold)
	maliciousColor  = color.New(color.FgRed, color.Bold)
	dimColor        = color.New(color.FgHiBlack)
)

func colorVerdict(v domain.Verdict) string {
	switch v {
	case domain.VerdictMalicious:
		return maliciousColor.Sprint(v)
	case domain.VerdictSuspicious:
		return suspiciousColor.Sprint(v)
	default:
		return safeColor.Sprint(v)
	}
}

func renderThreats(out io.Writer, threats []domain.ThreatMatch) {
	for _, t := range threats {
		fmt.Fprintf(out, "  - %s on %s %s\n", t.Type, t.Platform, dimColor.Sprint(t.URL))
	}
}

func renderHealthReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		status := strings.ToUpper(string(check.Status))
		switch check.Status {
		case domain.HealthOK:
			status = safeColor.Sprint(status)
		case domain.HealthWarn:
			status = suspiciousColor.Sprint(status)
		case domain.HealthError:
			status = maliciousColor.Sprint(status)
		}
		fmt.Fprintf(out, "[%s] %s - %s\n", status, check.Name, check.Details)
	}
}

func onOff(v bool) string {
	if v {
		return safeColor.Sprint("on")
	}
	return dimColor.Sprint("off")
}
