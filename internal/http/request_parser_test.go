package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finances/internal/core"
)

func TestParseDateQuery(t *testing.T) {
	now := time.Date(2024, 3, 9, 22, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantErr bool
	}{
		{"absent uses today", url.Values{}, "2024-03-09", false},
		{"explicit", url.Values{"date": {"2023-12-31"}}, "2023-12-31", false},
		{"padded", url.Values{"date": {" 2024-02-29 "}}, "2024-02-29", false},
		{"malformed", url.Values{"date": {"31/12/2023"}}, "", true},
		{"impossible day", url.Values{"date": {"2023-02-30"}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateQuery(tt.query, "date", now)
			if tt.wantErr {
				if !errors.Is(err, errBadParam) {
					t.Fatalf("expected errBadParam, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Format(core.DateLayout) != tt.want {
				t.Errorf("got %s, want %s", got.Format(core.DateLayout), tt.want)
			}
		})
	}
}

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    PageParams
		wantErr bool
	}{
		{"defaults", "", PageParams{Offset: 0, Limit: 50, Rows: -1}, false},
		{"explicit", "offset=100&limit=25&rows=25&dir=older", PageParams{Offset: 100, Limit: 25, Rows: 25, Dir: "older"}, false},
		{"zero limit uses default", "limit=0", PageParams{Limit: 50, Rows: -1}, false},
		{"limit capped", "limit=10000", PageParams{Limit: maxPageLimit, Rows: -1}, false},
		{"negative offset", "offset=-1", PageParams{}, true},
		{"bad limit", "limit=ten", PageParams{}, true},
		{"bad dir", "dir=sideways", PageParams{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParsePageParams(q, 50)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseGroupingQuery(t *testing.T) {
	for in, want := range map[string]core.Grouping{"": core.GroupByDay, "month": core.GroupByMonth, "Day": core.GroupByDay} {
		got, err := ParseGroupingQuery(url.Values{"grouping": {in}})
		if err != nil || got != want {
			t.Errorf("ParseGroupingQuery(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseGroupingQuery(url.Values{"grouping": {"Year"}}); !errors.Is(err, errBadParam) {
		t.Errorf("expected errBadParam, got %v", err)
	}
}

func TestParseTagList(t *testing.T) {
	got := ParseTagList(" Food, ,Fun,,Home ")
	if strings.Join(got, "|") != "Food|Fun|Home" {
		t.Errorf("got %q", got)
	}
	if ParseTagList("") != nil {
		t.Error("empty list should be nil")
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		isJSON bool
		want   func(t *testing.T, p *RequestBodyParser)
	}{
		{
			name:   "json with numeric amount",
			body:   `{"id": 7, "account": " Checking ", "amount": -12.5, "l1_tag": "Food", "l2_tag": "Home", "l3_tag": "Market"}`,
			isJSON: true,
			want: func(t *testing.T, p *RequestBodyParser) {
				in := p.TransactionInput()
				if in.ID != 7 || in.Account != "Checking" || in.Amount != "-12.5" || in.L3Tag != "Market" {
					t.Errorf("unexpected input %+v", in)
				}
			},
		},
		{
			name: "form with combined tags",
			body: "account=Cash&amount=-3%2C20&description=coffee%07&tags=Food%7CHome%7CBakery",
			want: func(t *testing.T, p *RequestBodyParser) {
				in := p.TransactionInput()
				if in.Account != "Cash" || in.Amount != "-3,20" || in.Description != "coffee" {
					t.Errorf("unexpected input %+v", in)
				}
				if in.L1Tag != "Food" || in.L2Tag != "Home" || in.L3Tag != "Bakery" {
					t.Errorf("tags not split: %+v", in)
				}
				if in.ID != 0 {
					t.Errorf("missing id should stay zero, got %d", in.ID)
				}
			},
		},
		{
			name: "explicit tags win over combined",
			body: "l1_tag=Fun&l2_tag=Out&l3_tag=Cinema&tags=Food%7CHome%7CBakery",
			want: func(t *testing.T, p *RequestBodyParser) {
				if in := p.TransactionInput(); in.L1Tag != "Fun" {
					t.Errorf("unexpected tags %+v", in)
				}
			},
		},
		{
			name:   "account and tags kept verbatim",
			body:   `{"account":" Cash ","description":"  bread  ","l1_tag":"Food\t","l2_tag":"Home","l3_tag":" Bakery"}`,
			isJSON: true,
			want: func(t *testing.T, p *RequestBodyParser) {
				in := p.TransactionInput()
				if in.Account != " Cash " || in.L1Tag != "Food\t" || in.L3Tag != " Bakery" {
					t.Errorf("fields were rewritten: %+v", in)
				}
				if in.Description != "bread" {
					t.Errorf("description = %q, want trimmed", in.Description)
				}
			},
		},
		{
			name: "empty body",
			body: "",
			want: func(t *testing.T, p *RequestBodyParser) {
				if p.Get("account") != "" {
					t.Error("expected empty value")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(r)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON() = %v", p.IsJSON())
			}
			tt.want(t, p)
		})
	}
}

func TestRequestBodyParserMalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"account": `))
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error")
	}
	// The error sticks.
	if err := p.Parse(); err == nil {
		t.Fatal("expected cached error")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  plain  ":         "plain",
		"tab\tkept":         "tab\tkept",
		"bell\agone":        "bellgone",
		"null\x00byte":      "nullbyte",
		"line\nbreak kept ": "line\nbreak kept",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
