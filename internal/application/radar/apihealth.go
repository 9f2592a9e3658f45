package radar

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// jwtExpiryWarnWindow is how far ahead of the exp claim a token starts
// producing warnings.
const jwtExpiryWarnWindow = 3 * 24 * time.Hour

// CheckJWTExpiry inspects the exp claim of a bearer token and returns an
// alert when the token is expired or about to expire. A refresh token
// silences both cases since the client renews on its own. Tokens that
// cannot be decoded are ignored; credential checks never block a response.
func CheckJWTExpiry(token, source string, hasRefresh bool, log logging.Logger) *radartypes.APIAlert {
	if token == "" || !strings.Contains(token, ".") {
		return nil
	}

	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil
	}
	payload := parts[1]
	if pad := len(payload) % 4; pad != 0 {
		payload += strings.Repeat("=", 4-pad)
	}
	raw, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		log.Debug("jwt payload not decodable", logging.String("source", source), logging.Err(err))
		return nil
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(raw, &claims); err != nil {
		log.Debug("jwt claims not readable", logging.String("source", source), logging.Err(err))
		return nil
	}
	if claims.Exp == 0 {
		return nil
	}

	remaining := time.Until(time.Unix(claims.Exp, 0))
	switch {
	case remaining <= 0:
		if hasRefresh {
			return nil
		}
		return &radartypes.APIAlert{
			Source:  source,
			Level:   "error",
			Message: fmt.Sprintf("%s-Token abgelaufen (seit %.0fh)", source, -remaining.Hours()),
		}
	case remaining <= jwtExpiryWarnWindow:
		if hasRefresh {
			return nil
		}
		alert := &radartypes.APIAlert{Source: source, Level: "warning"}
		if remaining >= 24*time.Hour {
			alert.Message = fmt.Sprintf("%s-Token laeuft in %.1f Tagen ab", source, remaining.Hours()/24)
		} else {
			alert.Message = fmt.Sprintf("%s-Token laeuft in %.0f Stunden ab", source, remaining.Hours())
		}
		return alert
	default:
		return nil
	}
}

// runtimeFailurePatterns maps warning substrings to the upstream source
// they implicate. Ordered so alerts come out deterministically.
var runtimeFailurePatterns = []struct {
	substr string
	source string
}{
	{"Semantic Scholar Abfrage fehlgeschlagen", "Semantic Scholar"},
	{"GLEIF Entity Resolution fehlgeschlagen", "GLEIF"},
	{"publication_years", "OpenAIRE"},
}

// DetectRuntimeFailures scans the aggregated panel warnings for upstream
// API failures and raises one alert per affected source.
func DetectRuntimeFailures(warnings []string) []radartypes.APIAlert {
	var alerts []radartypes.APIAlert
	for _, pat := range runtimeFailurePatterns {
		for _, w := range warnings {
			if strings.Contains(w, pat.substr) {
				alerts = append(alerts, radartypes.APIAlert{
					Source:  pat.source,
					Level:   "error",
					Message: fmt.Sprintf("%s: Daten nicht verfuegbar", pat.source),
				})
				break
			}
		}
	}
	return alerts
}
