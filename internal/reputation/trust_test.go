package reputation

import (
	"testing"
	"time"
)

func TestClassifyTrust(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name    string
		overall float64
		age     time.Duration
		want    TrustLevel
	}{
		{"new member overrides high score", 95, 29 * day, TrustNewMember},
		{"new member overrides low score", 5, 0, TrustNewMember},
		{"restricted", 29.9, 400 * day, TrustRestricted},
		{"under review lower bound", 30, 400 * day, TrustUnderReview},
		{"under review", 49.9, 400 * day, TrustUnderReview},
		{"verified at 50", 50, 30 * day, TrustVerified},
		{"high score but too young for trusted", 85, 60 * day, TrustVerified},
		{"trusted", 65, 90 * day, TrustTrusted},
		{"high score, trusted age only", 85, 120 * day, TrustTrusted},
		{"highly trusted", 80, 180 * day, TrustHighlyTrusted},
		{"just below trusted", 64.99, 365 * day, TrustVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTrust(tt.overall, tt.age); got != tt.want {
				t.Errorf("ClassifyTrust(%v, %v) = %s, want %s", tt.overall, tt.age, got, tt.want)
			}
		})
	}
}

func TestScoreOverall(t *testing.T) {
	s := &Score{ResponseQuality: 40, RespectScore: 60, AuthenticityScore: 80, InvestmentScore: 20}
	if got := s.Overall(); got != 50 {
		t.Errorf("expected overall 50, got %v", got)
	}
}

func TestDecayFactor(t *testing.T) {
	if got := DecayFactor(0.2, 0); got != 1 {
		t.Errorf("expected 1 with no prior events, got %v", got)
	}
	if got := DecayFactor(0.2, 5); got != 0.5 {
		t.Errorf("expected 0.5 after 5 prior events, got %v", got)
	}
}

func TestPayloadScan(t *testing.T) {
	var p Payload
	if err := p.Scan([]byte(`{"conversation_id": 3}`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if p["conversation_id"].(float64) != 3 {
		t.Errorf("expected conversation_id 3, got %v", p["conversation_id"])
	}

	var empty Payload
	if err := empty.Scan(nil); err != nil || empty == nil {
		t.Errorf("expected nil to scan into an empty payload, got %v, %v", empty, err)
	}
	if err := empty.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}
