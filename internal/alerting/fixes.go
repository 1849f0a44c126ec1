package alerting

import (
	"strings"

	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
)

// fallbackFix is the hint used when no known condition matches.
const fallbackFix = "check logs for more details"

// reasonFixes maps degraded-reason tokens to remediation hints.
var reasonFixes = map[string]string{
	health.ReasonSpeechModelMissing: "download the EVTS transcription model and place it at one of the configured SPEECH_MODEL_PATHS",
	health.ReasonStripeKeysMissing:  "set STRIPE_SECRET_KEY (and STRIPE_PUBLISHABLE_KEY for embedded checkout)",
	health.ReasonTranspileOnly:      "rebuild the eligibility rules engine with type checking enabled before deploying to production",
}

// SuggestFix maps the known failure conditions in a snapshot to short
// remediation hints for operators. Unknown conditions fall back to a generic
// hint. Pure function.
func SuggestFix(s health.Snapshot) string {
	var hints []string

	if db, ok := s.Services[integrity.ServiceDatabase]; ok && !db.OK {
		hints = append(hints, "verify DATABASE_URL and confirm the database is accepting connections")
	}
	if st, ok := s.Services[integrity.ServiceStorage]; ok && !st.OK {
		hints = append(hints, "check that the data directory exists and the process can write to it")
	}

	for _, reason := range s.Degraded.Reasons {
		if hint, ok := reasonFixes[reason]; ok {
			hints = append(hints, hint)
		}
	}

	if len(hints) == 0 {
		return fallbackFix
	}
	return strings.Join(hints, "; ")
}
