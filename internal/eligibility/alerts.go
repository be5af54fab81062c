package eligibility

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/record"
)

// Alert types.
const (
	AlertInactiveCoverage = "INACTIVE_COVERAGE"
	AlertExpiredCoverage  = "EXPIRED_COVERAGE"
	AlertOutOfNetwork     = "OUT_OF_NETWORK"
	AlertHighDeductible   = "HIGH_DEDUCTIBLE_REMAINING"
	AlertPreauthRequired  = "PREAUTH_REQUIRED"
)

// highDeductibleShare is the unmet share of the individual deductible above
// which front desk staff are warned.
const highDeductibleShare = 0.75

// defaultCopayKeys are tried in order when no office or urgent care copay
// was set directly.
var defaultCopayKeys = []string{"copay_96", "copay_UC", "copay_30"}

// Finalize derives coverage status, the representative copay, display
// dates and alerts once every segment of a subscriber has been read.
func Finalize(e *record.EligibilityRecord, now time.Time) {
	e.DOBDisplay = codes.DisplayDate(e.DOB)
	e.EffectiveDisplay = codes.DisplayDate(e.EffectiveDate)
	e.TermDisplay = codes.DisplayDate(e.TermDate)

	if e.Transaction == TransactionInquiry {
		// Inquiries state no coverage.
		return
	}

	switch {
	case expired(e, now):
		e.CoverageStatus = record.CoverageTerminated
	case e.InactiveSeen && !e.ActiveSeen:
		e.CoverageStatus = record.CoverageInactive
	default:
		e.CoverageStatus = record.CoverageActive
	}

	if e.Copay == 0 && len(e.CopayKeys) > 0 {
		for _, k := range defaultCopayKeys {
			if v, ok := e.Copays[k]; ok {
				e.Copay = v
				break
			}
		}
		if e.Copay == 0 {
			e.Copay = e.Copays[e.CopayKeys[0]]
		}
	}

	e.Alerts = Alerts(e, now)
}

func expired(e *record.EligibilityRecord, now time.Time) bool {
	if e.TermDate == "" {
		return false
	}
	t, ok := codes.ParseCCYYMMDD(e.TermDate)
	return ok && t.Before(now)
}

// Alerts lists the coverage warnings for a finalized record.
func Alerts(e *record.EligibilityRecord, now time.Time) []record.Alert {
	var alerts []record.Alert
	term := e.TermDisplay
	if term == "" {
		term = "N/A"
	}

	if e.CoverageStatus == record.CoverageInactive || e.CoverageStatus == record.CoverageTerminated {
		alerts = append(alerts, record.Alert{
			Type:        AlertInactiveCoverage,
			Description: fmt.Sprintf("Patient coverage is %s. Term date: %s.", e.CoverageStatus, term),
			Action:      "Verify coverage with payer. Collect self-pay or update insurance on file.",
		})
	}

	if expired(e, now) {
		alerts = append(alerts, record.Alert{
			Type:        AlertExpiredCoverage,
			Description: fmt.Sprintf("Coverage expired on %s.", term),
			Action:      "Contact patient to obtain updated insurance information before rendering services.",
		})
	}

	if e.Provider.NetworkStatus == "Out-of-Network" {
		alerts = append(alerts, record.Alert{
			Type: AlertOutOfNetwork,
			Description: fmt.Sprintf("Provider %s (NPI: %s) is out-of-network for %s.",
				e.Provider.Name, e.Provider.NPI, e.Payer.Name),
			Action: "Inform patient of potential higher out-of-pocket costs. " +
				"Consider referring to in-network provider or obtain ABN.",
		})
	}

	if e.Deductible > 0 && e.DeductibleRemaining > 0 {
		share := e.DeductibleRemaining / e.Deductible
		if share > highDeductibleShare {
			p := message.NewPrinter(language.English)
			alerts = append(alerts, record.Alert{
				Type: AlertHighDeductible,
				Description: p.Sprintf("Individual deductible: $%.2f. Remaining: $%.2f (%.0f%% unmet).",
					e.Deductible, e.DeductibleRemaining, share*100),
				Action: "Discuss expected patient responsibility. " +
					"Consider payment plan options. Collect estimated amount at time of service.",
			})
		}
	}

	if len(e.Preauth) > 0 {
		names := make([]string, len(e.Preauth))
		for i, s := range e.Preauth {
			names[i] = s.ServiceType
			if names[i] == "" {
				names[i] = s.ServiceTypeCode
			}
		}
		alerts = append(alerts, record.Alert{
			Type:        AlertPreauthRequired,
			Description: fmt.Sprintf("Pre-authorization required for: %s.", strings.Join(names, ", ")),
			Action: "Obtain pre-authorization from payer before scheduling or rendering services. " +
				"Failure to obtain authorization may result in claim denial.",
		})
	}

	return alerts
}
