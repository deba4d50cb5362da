package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTypicalPrice(t *testing.T) {
	p := PricePoint{High: 110, Low: 90, Close: 100}
	if got := p.TypicalPrice(); got != 100 {
		t.Errorf("TypicalPrice: got %v, want 100", got)
	}
}

func TestPointerHelpers(t *testing.T) {
	f := Float(1.5)
	i := Int(42)
	b := Bool(true)
	if *f != 1.5 || *i != 42 || !*b {
		t.Errorf("unexpected pointer values: %v %v %v", *f, *i, *b)
	}
	if Float(1) == Float(1) {
		t.Error("expected distinct pointers per call")
	}
}

func TestRatioSetGet(t *testing.T) {
	rs := RatioSet{"roe": 12.5}
	if v, ok := rs.Get("roe"); !ok || v != 12.5 {
		t.Errorf("roe: got %v (present=%v), want 12.5", v, ok)
	}
	if _, ok := rs.Get("roa"); ok {
		t.Error("expected roa absent")
	}
}

func TestValuationSnapshotAbsentAsNull(t *testing.T) {
	snap := ValuationSnapshot{PER: Float(12.5), Source: SourceFeed, Unavailable: false}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal(ValuationSnapshot) error: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"pbr":null`) {
		t.Errorf("expected absent PBR encoded as null, got %s", s)
	}
	if !strings.Contains(s, `"per":12.5`) {
		t.Errorf("expected per 12.5, got %s", s)
	}
}

func TestFairPriceEstimateDecode(t *testing.T) {
	raw := `{
		"fair_price": 82000,
		"fair_price_reason": "PBR 1.0배 적용",
		"current_vs_fair": "저평가",
		"investment_score": 72,
		"investment_grade": "B+",
		"investment_opinion": "매수",
		"evaluation_summary": "요약"
	}`
	var est FairPriceEstimate
	if err := json.Unmarshal([]byte(raw), &est); err != nil {
		t.Fatalf("json.Unmarshal(FairPriceEstimate) error: %v", err)
	}
	if est.Value != 82000 {
		t.Errorf("Value: got %v, want 82000", est.Value)
	}
	if est.Score == nil || *est.Score != 72 {
		t.Errorf("Score: got %v, want 72", est.Score)
	}
	if est.Grade != "B+" || est.Opinion != "매수" {
		t.Errorf("Grade/Opinion: got %q/%q", est.Grade, est.Opinion)
	}
	if est.Corrected || est.OriginalValue != nil {
		t.Error("expected a fresh estimate to be uncorrected")
	}
}
