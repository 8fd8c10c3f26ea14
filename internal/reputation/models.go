// internal/reputation/models.go

package reputation

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BehaviorType enumerates the behaviors the ledger scores.
type BehaviorType string

const (
	// Positive
	BehaviorThoughtfulMessage BehaviorType = "THOUGHTFUL_MESSAGE"
	BehaviorPromptResponse    BehaviorType = "PROMPT_RESPONSE"
	BehaviorScheduledDate     BehaviorType = "SCHEDULED_DATE"
	BehaviorCompletedDate     BehaviorType = "COMPLETED_DATE"
	BehaviorPositiveFeedback  BehaviorType = "POSITIVE_FEEDBACK"
	BehaviorGracefulDecline   BehaviorType = "GRACEFUL_DECLINE"
	BehaviorProfileComplete   BehaviorType = "PROFILE_COMPLETE"
	BehaviorVideoVerified     BehaviorType = "VIDEO_VERIFIED"

	// Negative
	BehaviorLowEffortMessage    BehaviorType = "LOW_EFFORT_MESSAGE"
	BehaviorSlowResponse        BehaviorType = "SLOW_RESPONSE"
	BehaviorGhosting            BehaviorType = "GHOSTING"
	BehaviorNoShow              BehaviorType = "NO_SHOW"
	BehaviorNegativeFeedback    BehaviorType = "NEGATIVE_FEEDBACK"
	BehaviorReported            BehaviorType = "REPORTED"
	BehaviorReportUpheld        BehaviorType = "REPORT_UPHELD"
	BehaviorInappropriate       BehaviorType = "INAPPROPRIATE_CONTENT"
	BehaviorMisrepresentation   BehaviorType = "MISREPRESENTATION"
)

// Dimension is one of the four sub-scores a behavior feeds.
type Dimension string

const (
	DimensionNone         Dimension = ""
	DimensionResponse     Dimension = "response_quality"
	DimensionRespect      Dimension = "respect"
	DimensionAuthenticity Dimension = "authenticity"
	DimensionInvestment   Dimension = "investment"
)

// Counter is a derived tally kept on the score.
type Counter int

const (
	CounterNone Counter = iota
	CounterGhosting
	CounterReportsReceived
	CounterReportsUpheld
	CounterDatesCompleted
	CounterPositiveFeedback
)

type behaviorRule struct {
	Impact    float64
	Dimension Dimension
	Counter   Counter
}

// rules drives impact lookup, dimension routing and counter bumps.
// Adding a behavior is a new row here.
var rules = map[BehaviorType]behaviorRule{
	BehaviorThoughtfulMessage: {Impact: 0.5, Dimension: DimensionResponse},
	BehaviorPromptResponse:    {Impact: 0.3, Dimension: DimensionResponse},
	BehaviorLowEffortMessage:  {Impact: -0.3, Dimension: DimensionResponse},
	BehaviorSlowResponse:      {Impact: -0.2, Dimension: DimensionResponse},

	BehaviorGracefulDecline:  {Impact: 0.5, Dimension: DimensionRespect},
	BehaviorGhosting:         {Impact: -2.0, Dimension: DimensionRespect, Counter: CounterGhosting},
	BehaviorNoShow:           {Impact: -5.0, Dimension: DimensionRespect},
	BehaviorPositiveFeedback: {Impact: 2.5, Dimension: DimensionRespect, Counter: CounterPositiveFeedback},
	BehaviorNegativeFeedback: {Impact: -2.0, Dimension: DimensionRespect},
	BehaviorReported:         {Impact: -1.0, Dimension: DimensionRespect, Counter: CounterReportsReceived},
	BehaviorReportUpheld:     {Impact: -10.0, Dimension: DimensionRespect, Counter: CounterReportsUpheld},
	BehaviorInappropriate:    {Impact: -5.0, Dimension: DimensionRespect},

	BehaviorProfileComplete:   {Impact: 1.0, Dimension: DimensionAuthenticity},
	BehaviorVideoVerified:     {Impact: 3.0, Dimension: DimensionAuthenticity},
	BehaviorMisrepresentation: {Impact: -15.0, Dimension: DimensionAuthenticity},

	BehaviorScheduledDate: {Impact: 1.0, Dimension: DimensionInvestment},
	BehaviorCompletedDate: {Impact: 2.0, Dimension: DimensionInvestment, Counter: CounterDatesCompleted},
}

// BaseImpact returns the undecayed impact of b. Unknown behaviors weigh 0.
func BaseImpact(b BehaviorType) float64 {
	return rules[b].Impact
}

// DimensionOf returns the sub-score b is routed to.
func DimensionOf(b BehaviorType) Dimension {
	return rules[b].Dimension
}

// IsKnown reports whether b has a rule.
func (b BehaviorType) IsKnown() bool {
	_, ok := rules[b]
	return ok
}

// TrustLevel is the coarse classification derived from a score.
type TrustLevel string

const (
	TrustNewMember     TrustLevel = "NEW_MEMBER"
	TrustRestricted    TrustLevel = "RESTRICTED"
	TrustUnderReview   TrustLevel = "UNDER_REVIEW"
	TrustVerified      TrustLevel = "VERIFIED"
	TrustTrusted       TrustLevel = "TRUSTED"
	TrustHighlyTrusted TrustLevel = "HIGHLY_TRUSTED"
)

// Score is the per-user reputation aggregate.
type Score struct {
	UserID            int64      `json:"user_id" db:"user_id"`
	ResponseQuality   float64    `json:"response_quality" db:"response_quality"`
	RespectScore      float64    `json:"respect_score" db:"respect_score"`
	AuthenticityScore float64    `json:"authenticity_score" db:"authenticity_score"`
	InvestmentScore   float64    `json:"investment_score" db:"investment_score"`

	GhostingCount         int `json:"ghosting_count" db:"ghosting_count"`
	ReportsReceived       int `json:"reports_received" db:"reports_received"`
	ReportsUpheld         int `json:"reports_upheld" db:"reports_upheld"`
	DatesCompleted        int `json:"dates_completed" db:"dates_completed"`
	PositiveFeedbackCount int `json:"positive_feedback_count" db:"positive_feedback_count"`

	TrustLevel TrustLevel `json:"trust_level" db:"trust_level"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// NewScore returns an unsaved score with every dimension at base.
func NewScore(userID int64, base float64, now time.Time) *Score {
	return &Score{
		UserID:            userID,
		ResponseQuality:   base,
		RespectScore:      base,
		AuthenticityScore: base,
		InvestmentScore:   base,
		TrustLevel:        TrustNewMember,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Overall is the single aggregate used for classification and display.
func (s *Score) Overall() float64 {
	return (s.ResponseQuality + s.RespectScore + s.AuthenticityScore + s.InvestmentScore) / 4
}

// apply adds impact to dim, clamping to [0,100], and bumps the counter.
func (s *Score) apply(dim Dimension, impact float64, counter Counter) {
	switch dim {
	case DimensionResponse:
		s.ResponseQuality = clamp(s.ResponseQuality + impact)
	case DimensionRespect:
		s.RespectScore = clamp(s.RespectScore + impact)
	case DimensionAuthenticity:
		s.AuthenticityScore = clamp(s.AuthenticityScore + impact)
	case DimensionInvestment:
		s.InvestmentScore = clamp(s.InvestmentScore + impact)
	}

	switch counter {
	case CounterGhosting:
		s.GhostingCount++
	case CounterReportsReceived:
		s.ReportsReceived++
	case CounterReportsUpheld:
		s.ReportsUpheld++
	case CounterDatesCompleted:
		s.DatesCompleted++
	case CounterPositiveFeedback:
		s.PositiveFeedbackCount++
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Event is one append-only ledger row.
type Event struct {
	ID           int64        `json:"id" db:"id"`
	UserID       int64        `json:"user_id" db:"user_id"`
	Type         BehaviorType `json:"type" db:"behavior_type"`
	TargetUserID *int64       `json:"target_user_id,omitempty" db:"target_user_id"`
	Payload      Payload      `json:"payload" db:"payload"`
	BaseImpact   float64      `json:"base_impact" db:"base_impact"`
	DecayFactor  float64      `json:"decay_factor" db:"decay_factor"`
	Impact       float64      `json:"impact" db:"impact"`
	Dimension    Dimension    `json:"dimension,omitempty" db:"dimension"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// Payload is opaque structured data attached to an event.
type Payload map[string]interface{}

// Scan implements sql.Scanner interface
func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = make(Payload)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported payload type %T", value)
	}

	return json.Unmarshal(raw, p)
}

// Value implements driver.Valuer interface
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	return json.Marshal(p)
}
