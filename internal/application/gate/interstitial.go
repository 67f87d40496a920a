package gate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/doeshing/phishnet-go/internal/domain"
)

// BuildInterstitialURL appends url, verdict and tabId query parameters to base.
func BuildInterstitialURL(base, target string, verdict domain.Verdict, tabID int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("interstitial base %q: %w", base, err)
	}
	q := u.Query()
	q.Set("url", target)
	q.Set("verdict", verdict.String())
	q.Set("tabId", strconv.Itoa(tabID))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// InterstitialHint is what the warning view can read from its own URL before
// the coordinator answers. It is not authoritative.
type InterstitialHint struct {
	URL     string
	Verdict domain.Verdict
	TabID   *int
}

// ParseInterstitialQuery reads the hint parameters. Unknown verdicts and
// non-numeric tab ids are dropped.
func ParseInterstitialQuery(values url.Values) InterstitialHint {
	hint := InterstitialHint{URL: values.Get("url")}
	if v, ok := domain.ParseVerdict(values.Get("verdict")); ok {
		hint.Verdict = v
	}
	if raw := strings.TrimSpace(values.Get("tabId")); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			hint.TabID = &id
		}
	}
	return hint
}
