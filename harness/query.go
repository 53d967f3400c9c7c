// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package harness

import (
	"strings"
	"time"
	"unicode"
)

// Operator compares a report field with a filter value.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // started:2026-01..2026-02
)

// Filter is one key:value criterion of a ReportQuery.
type Filter struct {
	Key      string // scenario, status, id, started
	Value    string
	MaxValue string // only for OpRange
	Operator Operator
}

// ReportQuery selects stored reports, e.g.
//
//	status:Aborted scenario:home-tour started:>=2026-10-01
type ReportQuery struct {
	Filters  []Filter
	FreeText []string
}

// Longest prefixes first so ">=" is not read as ">".
var prefixOps = []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess}

// ParseReportQuery parses a query string. Tokens that are not well-formed
// key:value pairs are kept as free text.
func ParseReportQuery(input string) ReportQuery {
	q := ReportQuery{Filters: []Filter{}, FreeText: []string{}}
	for _, token := range tokenize(input) {
		key, val, ok := strings.Cut(token, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if !ok || key == "" || val == "" || (strings.Contains(val, ":") && !isQuoted(val)) {
			q.FreeText = append(q.FreeText, removeQuotes(token))
			continue
		}
		if lo, hi, ok := strings.Cut(val, ".."); ok {
			q.Filters = append(q.Filters, Filter{Key: key, Value: removeQuotes(lo), MaxValue: removeQuotes(hi), Operator: OpRange})
			continue
		}
		f := Filter{Key: key, Value: removeQuotes(val), Operator: OpEqual}
		for _, op := range prefixOps {
			if rest, ok := strings.CutPrefix(val, string(op)); ok {
				f.Value, f.Operator = removeQuotes(rest), op
				break
			}
		}
		q.Filters = append(q.Filters, f)
	}
	return q
}

// Match reports whether m satisfies every filter and free text term.
func (q ReportQuery) Match(m ReportMetadata) bool {
	for _, f := range q.Filters {
		if !f.match(m) {
			return false
		}
	}
	for _, term := range q.FreeText {
		term = strings.ToLower(term)
		if !strings.Contains(strings.ToLower(m.Scenario), term) && !strings.HasPrefix(m.ID, term) {
			return false
		}
	}
	return true
}

func (f Filter) match(m ReportMetadata) bool {
	switch f.Key {
	case "scenario":
		return f.Operator == OpEqual && strings.EqualFold(m.Scenario, f.Value)
	case "status", "is":
		return f.Operator == OpEqual && strings.EqualFold(string(m.Status), f.Value)
	case "id":
		return f.Operator == OpEqual && strings.HasPrefix(m.ID, f.Value)
	case "started", "date":
		return f.matchTime(time.Unix(0, m.Started).UTC())
	}
	return false
}

// Dates match at the precision they are written in: started:2026-10 covers
// the whole month.
var queryTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02", "2006-01", "2006"}

func queryLayout(v string) (string, bool) {
	for _, l := range queryTimeLayouts {
		if _, err := time.Parse(l, v); err == nil {
			return l, true
		}
	}
	return "", false
}

func (f Filter) matchTime(t time.Time) bool {
	layout, ok := queryLayout(f.Value)
	if !ok {
		return false
	}
	// Fixed-width layouts order lexically.
	s := t.Format(layout)
	switch f.Operator {
	case OpEqual:
		return s == f.Value
	case OpGreater:
		return s > f.Value
	case OpGreaterOrEqual:
		return s >= f.Value
	case OpLess:
		return s < f.Value
	case OpLessOrEqual:
		return s <= f.Value
	case OpRange:
		maxLayout, ok := queryLayout(f.MaxValue)
		return ok && s >= f.Value && t.Format(maxLayout) <= f.MaxValue
	}
	return false
}

// tokenize splits the string by spaces, respecting quotes.
func tokenize(input string) []string {
	var tokens []string
	var cur strings.Builder
	quote := rune(0)
	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func isQuoted(s string) bool {
	s = strings.TrimLeft(s, "<>=")
	return strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'")
}

func removeQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// FindReports lists the stored reports matching q, newest first.
func (rs *ReportStore) FindReports(q ReportQuery) ([]ReportMetadata, error) {
	all, err := rs.ListReports()
	if err != nil {
		return nil, err
	}
	var out []ReportMetadata
	for _, m := range all {
		if q.Match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
