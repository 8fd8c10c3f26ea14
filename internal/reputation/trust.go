package reputation

import "time"

// Thresholds for trust classification
const (
	NewMemberAge        = 30 * 24 * time.Hour
	TrustedMinAge       = 90 * 24 * time.Hour
	HighlyTrustedMinAge = 180 * 24 * time.Hour

	ThresholdRestricted    = 30.0
	ThresholdUnderReview   = 50.0
	ThresholdTrusted       = 65.0
	ThresholdHighlyTrusted = 80.0
)

// ClassifyTrust maps an overall score and account age to a trust level.
// Account age below NewMemberAge wins over any score.
func ClassifyTrust(overall float64, accountAge time.Duration) TrustLevel {
	switch {
	case accountAge < NewMemberAge:
		return TrustNewMember
	case overall < ThresholdRestricted:
		return TrustRestricted
	case overall < ThresholdUnderReview:
		return TrustUnderReview
	case overall >= ThresholdHighlyTrusted && accountAge >= HighlyTrustedMinAge:
		return TrustHighlyTrusted
	case overall >= ThresholdTrusted && accountAge >= TrustedMinAge:
		return TrustTrusted
	default:
		return TrustVerified
	}
}
