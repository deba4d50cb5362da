package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// SystemPrompt instructs the model to answer with the estimate JSON only.
const SystemPrompt = `당신은 한국 주식 전문 증권 애널리스트입니다.
주어진 데이터를 분석하여 반드시 아래 JSON 형식으로만 응답해주세요.
다른 텍스트 없이 JSON만 출력하세요.

응답 JSON 구조:
{
    "fair_price": 적정주가(원 단위 숫자, 배수가 아닌 주당 가격),
    "fair_price_reason": "적정주가 산출 근거 (2문장)",
    "current_vs_fair": "현재가 대비 적정주가 평가 (저평가/적정/고평가와 괴리율)",
    "investment_score": 투자점수(0~100 사이 정수),
    "investment_grade": "투자등급 (A+, A, B+, B, C, D 중 하나)",
    "investment_opinion": "매수/관망/주의/매도 중 하나",
    "evaluation_summary": "종합 평가 요약 (5문장 이내)"
}

점수 기준:
- 투자점수: 80+ 매수추천, 60~79 관망, 40~59 주의, 40미만 매도고려
- 적정주가: PER, PBR, 성장성 등을 종합하여 산출하며 반드시 원 단위 가격으로 제시`

// Estimator asks a provider for a structured fair-price estimate of one
// instrument given its formatted brief.
type Estimator struct {
	provider Provider
	opts     ChatOptions
}

// EstimateRequest is the input of one estimate.
type EstimateRequest struct {
	Name   string
	Ticker string
	Price  float64
	Brief  string
}

// NewEstimator creates an estimator. JSON output is always requested.
func NewEstimator(p Provider, opts ChatOptions) *Estimator {
	opts.JSON = true
	return &Estimator{provider: p, opts: opts}
}

// Estimate sends the brief and parses the response. The returned estimate
// is unvalidated; its fair price must still pass the guard.
func (e *Estimator) Estimate(ctx context.Context, req EstimateRequest) (*models.FairPriceEstimate, error) {
	opts := e.opts
	resp, err := e.provider.Chat(ctx, []Message{
		SystemMessage(SystemPrompt),
		UserMessage(UserPrompt(req)),
	}, &opts)
	if err != nil {
		return nil, err
	}
	return ParseEstimate(resp.Content)
}

// UserPrompt renders the user message for req.
func UserPrompt(req EstimateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s) 분석 요청\n\n", req.Name, req.Ticker)
	fmt.Fprintf(&b, "### 현재 주가\n%s\n\n", utils.FormatKRW(req.Price))
	b.WriteString(strings.TrimSpace(req.Brief))
	b.WriteString("\n\n위 데이터를 분석하여 JSON 형식으로 응답해주세요.")
	return b.String()
}

type rawEstimate struct {
	FairPrice         json.RawMessage `json:"fair_price"`
	FairPriceReason   string          `json:"fair_price_reason"`
	CurrentVsFair     string          `json:"current_vs_fair"`
	InvestmentScore   json.RawMessage `json:"investment_score"`
	InvestmentGrade   string          `json:"investment_grade"`
	InvestmentOpinion string          `json:"investment_opinion"`
	EvaluationSummary string          `json:"evaluation_summary"`
}

// ParseEstimate extracts the estimate JSON from content. The object may be
// wrapped in prose or a code fence; fair_price and investment_score accept a
// number or a numeric string such as "82,000원".
func ParseEstimate(content string) (*models.FairPriceEstimate, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		if strings.TrimSpace(content) == "" {
			return nil, ErrEmptyResponse
		}
		return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidEstimate)
	}

	var raw rawEstimate
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEstimate, err)
	}

	price, ok := jsonNumber(raw.FairPrice)
	if !ok {
		return nil, fmt.Errorf("%w: fair_price missing or not numeric", ErrInvalidEstimate)
	}

	est := &models.FairPriceEstimate{
		Value:         price,
		Reasoning:     strings.TrimSpace(raw.FairPriceReason),
		CurrentVsFair: strings.TrimSpace(raw.CurrentVsFair),
		Grade:         strings.TrimSpace(raw.InvestmentGrade),
		Opinion:       strings.TrimSpace(raw.InvestmentOpinion),
		Summary:       strings.TrimSpace(raw.EvaluationSummary),
	}
	if score, ok := jsonNumber(raw.InvestmentScore); ok && score >= 0 && score <= 100 {
		est.Score = &score
	}
	return est, nil
}

func jsonNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return utils.ParseAmount(s)
}
