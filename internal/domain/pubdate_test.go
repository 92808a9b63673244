package domain

import (
	"encoding/json"
	"testing"
)

func TestPubDateString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		date PubDate
		want string
	}{
		{NewFullDate(2026, 1, 2), "2026-01-02"},
		{NewYearMonthDate(2026, 1), "2026-01"},
		{NewYearMonthDate(2026, 0), "2026-00"},
		{NewYearDate(2026), "2026"},
		{NewUnstructuredDate("Winter 2025-2026"), "Winter 2025-2026"},
	}
	for _, tc := range cases {
		if got := tc.date.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestParsePubDatePrecision(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want DatePrecision
	}{
		{"2026-01-02", PrecisionFull},
		{"2026-1-2", PrecisionFull},
		{"2026-01", PrecisionYearMonth},
		{"2026", PrecisionYearOnly},
		{"Winter 2025-2026", PrecisionUnstructured},
		{"", PrecisionUnstructured},
	}
	for _, tc := range cases {
		got := ParsePubDate(tc.in)
		if got.Precision != tc.want {
			t.Fatalf("ParsePubDate(%q).Precision = %q, want %q", tc.in, got.Precision, tc.want)
		}
	}
}

func TestParsePubDateRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"2026-01-02", "2026-01", "2026", "Winter 2025-2026"} {
		if got := ParsePubDate(s).String(); got != s {
			t.Fatalf("round trip %q -> %q", s, got)
		}
	}
}

func TestPubDateJSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(NewFullDate(2026, 8, 30))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2026-08-30"` {
		t.Fatalf("unexpected JSON: %s", raw)
	}

	var d PubDate
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Precision != PrecisionFull || d.Year != 2026 || d.Month != 8 || d.Day != 30 {
		t.Fatalf("unexpected parsed date: %+v", d)
	}
}

func TestMergeUnionsPubTypes(t *testing.T) {
	t.Parallel()

	a := Article{PMID: "1", Title: "T", PubTypes: []string{"Clinical Trial"}}
	b := Article{PMID: "1", Abstract: "Body", PubTypes: []string{"Clinical Trial", "Multicenter Study"}}

	merged := a.Merge(b)
	if merged.Title != "T" || merged.Abstract != "Body" {
		t.Fatalf("scalar merge wrong: %+v", merged)
	}
	if len(merged.PubTypes) != 2 {
		t.Fatalf("expected 2 pub types, got %v", merged.PubTypes)
	}

	again := merged.Merge(b)
	if len(again.PubTypes) != 2 {
		t.Fatalf("merge not idempotent: %v", again.PubTypes)
	}
}
