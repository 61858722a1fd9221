// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: query dates, pager state, id path parameters and transaction bodies
// posted either as JSON or as an HTML form.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finances/internal/core"
	"finances/internal/services"
)

const maxBodyBytes = 64 << 10

var errBadParam = errors.New("bad parameter")

// ParseDateQuery reads a YYYY-MM-DD query value, defaulting to the day of
// now when absent.
func ParseDateQuery(query url.Values, key string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return today(now), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", errBadParam, key, v)
	}
	return d, nil
}

// ParseIntQuery reads a non-negative integer, returning def when absent.
func ParseIntQuery(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q", errBadParam, key, v)
	}
	return n, nil
}

// ParseGroupingQuery reads grouping=Day|Month, defaulting to Day.
func ParseGroupingQuery(query url.Values) (core.Grouping, error) {
	v := strings.TrimSpace(query.Get("grouping"))
	if v == "" {
		return core.GroupByDay, nil
	}
	g, err := core.ParseGrouping(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadParam, err)
	}
	return g, nil
}

// ParseTagList splits a comma separated list, dropping blanks.
func ParseTagList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// PageParams is the pager state a ledger view carries in its links.
type PageParams struct {
	Offset int
	Limit  int
	// Rows is the size of the page currently shown, -1 when unknown.
	Rows int
	// Dir is "older", "newer" or empty for a plain reload.
	Dir string
}

// ParsePageParams reads offset, limit, rows and dir. Limit is capped at
// maxPageLimit.
func ParsePageParams(query url.Values, defaultLimit int) (PageParams, error) {
	p := PageParams{Rows: -1}
	var err error
	if p.Offset, err = ParseIntQuery(query, "offset", 0); err != nil {
		return PageParams{}, err
	}
	if p.Limit, err = ParseIntQuery(query, "limit", defaultLimit); err != nil {
		return PageParams{}, err
	}
	if p.Limit == 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if query.Get("rows") != "" {
		if p.Rows, err = ParseIntQuery(query, "rows", -1); err != nil {
			return PageParams{}, err
		}
	}
	switch dir := query.Get("dir"); dir {
	case "", "older", "newer":
		p.Dir = dir
	default:
		return PageParams{}, fmt.Errorf("%w: dir %q", errBadParam, dir)
	}
	return p, nil
}

// ParseIDParam reads the {id} path parameter.
func ParseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", errBadParam, raw)
	}
	return id, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	return sanitizeInput(p.Raw(key))
}

// Raw returns a value exactly as posted. Accounts and tags are matched
// verbatim, so they must not be trimmed or filtered.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// TransactionInput maps the parsed body onto a service input. A missing
// or malformed id is left at zero for the service to reject.
func (p *RequestBodyParser) TransactionInput() services.TransactionInput {
	in := services.TransactionInput{
		Account:     p.Raw("account"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
		Amount:      core.AmountText(p.Get("amount")),
		L1Tag:       p.Raw("l1_tag"),
		L2Tag:       p.Raw("l2_tag"),
		L3Tag:       p.Raw("l3_tag"),
	}
	// The page form posts the triple as one "l1|l2|l3" value.
	if in.L1Tag == "" && in.L2Tag == "" && in.L3Tag == "" {
		if parts := strings.SplitN(p.Raw("tags"), "|", 3); len(parts) == 3 {
			in.L1Tag, in.L2Tag, in.L3Tag = parts[0], parts[1], parts[2]
		}
	}
	if id, err := strconv.ParseInt(p.Get("id"), 10, 64); err == nil {
		in.ID = id
	}
	return in
}

// stringValue converts a decoded JSON value to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
