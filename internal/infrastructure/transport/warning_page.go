package transport

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/doeshing/phishnet-go/assets"
	"github.com/doeshing/phishnet-go/internal/application/gate"
	"github.com/doeshing/phishnet-go/internal/domain"
)

var warningTemplate = template.Must(template.New("warning").Parse(assets.WarningPageHTML))

type warningView struct {
	URL     string
	Verdict domain.Verdict
	Label   string
	TabID   string
}

func verdictLabel(v domain.Verdict) string {
	switch v {
	case domain.VerdictMalicious:
		return "Malicious site blocked"
	case domain.VerdictSuspicious:
		return "Suspicious site flagged"
	case "":
		return "Analyzing..."
	default:
		return "Warning"
	}
}

// warningPage renders the interstitial from its query hint. The page then
// confirms against the pending warning over /api/v1/messages.
func (s *Server) warningPage(w http.ResponseWriter, r *http.Request) {
	hint := gate.ParseInterstitialQuery(r.URL.Query())
	view := warningView{URL: hint.URL, Verdict: hint.Verdict, Label: verdictLabel(hint.Verdict)}
	if hint.TabID != nil {
		view.TabID = strconv.Itoa(*hint.TabID)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := warningTemplate.Execute(w, view); err != nil {
		s.logger.Error("render warning page", err, nil)
	}
}
