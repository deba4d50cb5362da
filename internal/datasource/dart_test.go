package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seenimoa/krxbrief/pkg/models"
)

const statementCFS = `{"status":"000","message":"정상","list":[
 {"sj_div":"BS","account_nm":"자산총계","thstrm_amount":"455,905,980,000,000","frmtrm_amount":"448,424,507,000,000","bfefrmtrm_amount":"426,621,158,000,000"},
 {"sj_div":"BS","account_nm":"부채총계","thstrm_amount":"92,228,115,000,000","frmtrm_amount":"93,674,903,000,000","bfefrmtrm_amount":""},
 {"sj_div":"IS","account_nm":"매출액","thstrm_amount":"258,935,494,000,000","frmtrm_amount":"302,231,360,000,000","bfefrmtrm_amount":"-"}
]}`

func newTestDART(t *testing.T, h http.HandlerFunc) *DART {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewDART("test-key",
		WithDARTBaseURL(srv.URL),
		WithDARTHTTPClient(srv.Client()),
		WithDARTRateLimit(0),
		WithDARTClock(func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }),
	)
}

func TestDARTStatementConsolidated(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/fnlttSinglAcntAll.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q.Get("crtfc_key") != "test-key" || q.Get("reprt_code") != ReportAnnual || q.Get("bsns_year") != "2025" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("fs_div") != "CFS" {
			t.Errorf("expected consolidated first, got %s", q.Get("fs_div"))
		}
		w.Write([]byte(statementCFS))
	})

	lines, err := d.StatementLines(context.Background(), "00126380", 2025)
	if err != nil {
		t.Fatalf("StatementLines() error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].AccountName != "자산총계" || *lines[0].Current != 455_905_980_000_000 {
		t.Errorf("unexpected first line %+v", lines[0])
	}
	if lines[1].BeforePrior != nil {
		t.Error("expected empty amount absent")
	}
	if lines[2].BeforePrior != nil {
		t.Error("expected dash amount absent")
	}
}

func TestDARTStatementFallsBackToSeparate(t *testing.T) {
	var scopes []string
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		scope := r.URL.Query().Get("fs_div")
		scopes = append(scopes, scope)
		if scope == "CFS" {
			w.Write([]byte(`{"status":"013","message":"조회된 데이타가 없습니다."}`))
			return
		}
		w.Write([]byte(statementCFS))
	})

	lines, err := d.StatementLines(context.Background(), "00126380", 2025)
	if err != nil {
		t.Fatalf("StatementLines() error: %v", err)
	}
	if len(lines) != 3 {
		t.Errorf("expected 3 lines from separate statement, got %d", len(lines))
	}
	if len(scopes) != 2 || scopes[1] != "OFS" {
		t.Errorf("expected CFS then OFS, got %v", scopes)
	}
}

func TestDARTStatementNotFound(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"013","message":"no data"}`))
	})
	_, err := d.StatementLines(context.Background(), "00126380", 2025)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDARTAPIError(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"020","message":"요청 제한을 초과하였습니다."}`))
	})
	_, err := d.Dividends(context.Background(), "00126380", 2025)
	var apiErr *DARTError
	if !errors.As(err, &apiErr) || apiErr.Status != "020" {
		t.Errorf("expected DARTError 020, got %v", err)
	}
}

func TestDARTRequiresKeyAndCorpCode(t *testing.T) {
	if _, err := NewDART("").Dividends(context.Background(), "00126380", 2025); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	if _, err := NewDART("k").Dividends(context.Background(), "", 2025); !errors.Is(err, ErrNoCorpCode) {
		t.Errorf("expected ErrNoCorpCode, got %v", err)
	}
}

func TestDARTDividends(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"000","list":[
			{"se":"(연결)주당순이익(원)","stock_knd":"","thstrm":"4,950","frmtrm":"2,131","lwfr":"8,057"},
			{"se":"현금배당수익률(%)","stock_knd":"보통주","thstrm":"2.70","frmtrm":"1.90","lwfr":"2.50"}
		]}`))
	})
	rows, err := d.Dividends(context.Background(), "00126380", 2025)
	if err != nil {
		t.Fatalf("Dividends() error: %v", err)
	}
	if len(rows) != 2 || rows[0].Current != "4,950" || rows[1].StockKind != "보통주" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestTotalIssued(t *testing.T) {
	tests := []struct {
		name string
		rows []models.ShareCountRow
		want int64
		ok   bool
	}{
		{"total row wins", []models.ShareCountRow{
			{Category: "보통주", Issued: "5,969,782,550"},
			{Category: "우선주", Issued: "822,886,700"},
			{Category: "합계", Issued: "6,792,669,250"},
		}, 6_792_669_250, true},
		{"sum common and preferred", []models.ShareCountRow{
			{Category: "보통주", Issued: "1,000"},
			{Category: "우선주", Issued: "200"},
			{Category: "비고", Issued: "-"},
		}, 1200, true},
		{"issued total label", []models.ShareCountRow{{Category: "발행주식총수", Issued: "777"}}, 777, true},
		{"nothing usable", []models.ShareCountRow{{Category: "비고", Issued: "-"}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TotalIssued(tt.rows)
			if got != tt.want || ok != tt.ok {
				t.Errorf("expected %d/%v, got %d/%v", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestDARTTotalSharesRetriesPreviousYear(t *testing.T) {
	var calls atomic.Int32
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("bsns_year") {
		case "2025":
			w.Write([]byte(`{"status":"013","message":"no data"}`))
		case "2024":
			w.Write([]byte(`{"status":"000","list":[{"se":"합계","istc_totqy":"6,792,669,250"}]}`))
		default:
			t.Errorf("unexpected year %s", r.URL.Query().Get("bsns_year"))
		}
	})

	n, err := d.TotalShares(context.Background(), models.Instrument{Ticker: "005930", CorpCode: "00126380"}, 0)
	if err != nil {
		t.Fatalf("TotalShares() error: %v", err)
	}
	if n != 6_792_669_250 {
		t.Errorf("expected 6792669250, got %d", n)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestDARTTotalSharesFailure(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"000","list":[]}`))
	})
	_, err := d.TotalShares(context.Background(), models.Instrument{CorpCode: "00126380"}, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := d.TotalShares(context.Background(), models.Instrument{Ticker: "005930"}, 0); !errors.Is(err, ErrNoCorpCode) {
		t.Errorf("expected ErrNoCorpCode, got %v", err)
	}
}

func TestDARTLatestYear(t *testing.T) {
	d := NewDART("k", WithDARTClock(func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }))
	if d.LatestYear() != 2025 {
		t.Errorf("expected 2025, got %d", d.LatestYear())
	}
}

func TestDARTTotalSharesForYear(t *testing.T) {
	var years []string
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		years = append(years, r.URL.Query().Get("bsns_year"))
		w.Write([]byte(`{"status":"000","list":[{"se":"보통주","istc_totqy":"5,969,782,550"},{"se":"우선주","istc_totqy":"822,886,700"}]}`))
	})

	n, err := d.TotalShares(context.Background(), models.Instrument{CorpCode: "00126380"}, 2020)
	if err != nil {
		t.Fatalf("TotalShares() error: %v", err)
	}
	if n != 6_792_669_250 {
		t.Errorf("expected 6792669250, got %d", n)
	}
	if len(years) != 1 || years[0] != "2020" {
		t.Errorf("expected a single 2020 request, got %v", years)
	}
}

func TestDARTCompany(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company.json" || r.URL.Query().Get("corp_code") != "00126380" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Write([]byte(`{"status":"000","message":"정상","corp_code":"00126380","corp_name":"삼성전자(주)",
 "corp_name_eng":"SAMSUNG ELECTRONICS CO,.LTD","stock_name":"삼성전자","stock_code":"005930",
 "ceo_nm":"한종희","corp_cls":"Y","induty_code":"264","est_dt":"19690113","hm_url":"www.samsung.com/sec","acc_mt":"12"}`))
	})

	c, err := d.Company(context.Background(), "00126380")
	if err != nil {
		t.Fatalf("Company() error: %v", err)
	}
	if c.CorpName != "삼성전자(주)" || c.CEO != "한종희" || c.IndustryCode != "264" {
		t.Errorf("unexpected profile %+v", c)
	}
	if c.Established != "19690113" || c.Homepage != "www.samsung.com/sec" || c.CorpClass != "Y" || c.FiscalMonth != "12" {
		t.Errorf("unexpected profile details %+v", c)
	}
}

func TestDARTCompanyError(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"100","message":"필드의 부적절한 값입니다."}`))
	})
	_, err := d.Company(context.Background(), "00126380")
	var de *DARTError
	if !errors.As(err, &de) || de.Status != "100" {
		t.Errorf("expected DARTError 100, got %v", err)
	}
}

func TestDARTDisclosures(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/list.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q.Get("pblntf_ty") != "A" || q.Get("last_reprt_at") != "Y" {
			t.Errorf("expected final regular filings, got %s", r.URL.RawQuery)
		}
		if q.Get("bgn_de") != "20230315" || q.Get("end_de") != "20260315" {
			t.Errorf("unexpected date range %s-%s", q.Get("bgn_de"), q.Get("end_de"))
		}
		w.Write([]byte(`{"status":"000","list":[
 {"rcept_no":"20240312000736","report_nm":"사업보고서 (2023.12)","flr_nm":"삼성전자","rcept_dt":"20240312"},
 {"rcept_no":"20251114002447","report_nm":"분기보고서 (2025.09)","flr_nm":"삼성전자","rcept_dt":"20251114"},
 {"rcept_no":"20250311001085","report_nm":"사업보고서 (2024.12)","flr_nm":"삼성전자","rcept_dt":"20250311"}
]}`))
	})

	list, err := d.Disclosures(context.Background(), "00126380", 2)
	if err != nil {
		t.Fatalf("Disclosures() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 filings, got %d", len(list))
	}
	if list[0].ReceivedOn != "20251114" || list[1].ReportName != "사업보고서 (2024.12)" {
		t.Errorf("expected newest first, got %+v", list)
	}
}

func TestDARTDisclosuresNoData(t *testing.T) {
	d := newTestDART(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"013","message":"조회된 데이타가 없습니다."}`))
	})
	if _, err := d.Disclosures(context.Background(), "00126380", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
