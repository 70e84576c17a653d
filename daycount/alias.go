package daycount

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// aliasTable maps upstream free-text day-count labels onto the closed enum.
// Entries whose value differs from the canonical label are compatibility
// decisions (e.g. "30E/360 ISDA" handled as plain 30E/360) and are logged
// once per process when first hit.
var aliasTable = map[string]Convention{
	"30/360":         Thirty360,
	"30/360 ISDA":    Thirty360,
	"BOND BASIS":     Thirty360,
	"360/360":        Thirty360,
	"30/360 US":      Thirty360US,
	"30U/360":        Thirty360US,
	"30US/360":       Thirty360US,
	"MUNI 30/360":    Thirty360US,
	"30E/360":        ThirtyE360,
	"30E/360 ISDA":   ThirtyE360,
	"EUROBOND BASIS": ThirtyE360,
	"ACT/360":        Act360,
	"A/360":          Act360,
	"ACTUAL/360":     Act360,
	"MONEY MARKET":   Act360,
	"ACT/365":        Act365Fixed,
	"ACT/365F":       Act365Fixed,
	"ACT/365 FIXED":  Act365Fixed,
	"A/365F":         Act365Fixed,
	"ACTUAL/365":     Act365Fixed,
	"ACT/ACT":        ActActISDA,
	"ACT/ACT ISDA":   ActActISDA,
	"ACT/ACT-ISDA":   ActActISDA,
	"ACTUAL/ACTUAL":  ActActISDA,
	"ACT/ACT ICMA":   ActActICMA,
	"ACT/ACT-ICMA":   ActActICMA,
	"ACT/ACT ISMA":   ActActICMA,
	"NL/365":         NL365,
	"NL365":          NL365,
	"ACT/365 NL":     NL365,
}

var loggedAliases sync.Map

// Parse maps a free-text day-count label onto the enum. Unmapped labels
// fail with ErrUnsupportedConvention; callers decide the fallback, never
// this package.
func Parse(s string) (Convention, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	conv, ok := aliasTable[key]
	if !ok {
		return "", fmt.Errorf("daycount.Parse: %w: %q", ErrUnsupportedConvention, s)
	}
	if key != string(conv) {
		if _, seen := loggedAliases.LoadOrStore(key, struct{}{}); !seen {
			log.Debug().Str("alias", s).Str("convention", string(conv)).
				Msg("mapped day count alias")
		}
	}
	return conv, nil
}
