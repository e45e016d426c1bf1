package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status   CheckStatus
		expected string
	}{
		{StatusPass, "pass"},
		{StatusWarn, "warn"},
		{StatusFail, "fail"},
		{CheckStatus(99), "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if got := tc.status.String(); got != tc.expected {
				t.Errorf("got %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestCheckResult_JSONStatusName(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "x", Status: StatusWarn})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status":"warn"`) {
		t.Errorf("status not encoded by name: %s", data)
	}
}

// mockCheck is a test implementation of Check. After a successful Fix it
// reports fixedResult.
type mockCheck struct {
	name        string
	category    string
	result      CheckResult
	fixedResult *CheckResult
	fixErr      error
	fixCalls    int
	runCalls    int
}

func (m *mockCheck) Name() string     { return m.name }
func (m *mockCheck) Category() string { return m.category }
func (m *mockCheck) Run(_ context.Context) CheckResult {
	m.runCalls++
	return m.result
}
func (m *mockCheck) Fix() error {
	m.fixCalls++
	if m.fixErr == nil && m.fixedResult != nil {
		m.result = *m.fixedResult
	}
	return m.fixErr
}

func TestRunAll(t *testing.T) {
	checks := []Check{
		&mockCheck{
			name:     "check1",
			category: "TEST",
			result:   CheckResult{Name: "check1", Status: StatusPass, Message: "OK"},
		},
		&mockCheck{
			name:     "check2",
			category: "TEST",
			result:   CheckResult{Name: "check2", Status: StatusFail, Message: "Failed"},
		},
	}

	results := RunAll(context.Background(), checks)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusPass {
		t.Errorf("expected first check to pass")
	}
	if results[1].Status != StatusFail {
		t.Errorf("expected second check to fail")
	}
}

func TestRunAllParallel(t *testing.T) {
	checks := []Check{
		&mockCheck{name: "check1", result: CheckResult{Name: "check1", Status: StatusPass}},
		&mockCheck{name: "check2", result: CheckResult{Name: "check2", Status: StatusWarn}},
		&mockCheck{name: "check3", result: CheckResult{Name: "check3", Status: StatusFail}},
	}

	results := RunAllParallel(context.Background(), checks)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Order follows the checks, not completion.
	for i, want := range []CheckStatus{StatusPass, StatusWarn, StatusFail} {
		if results[i].Status != want {
			t.Errorf("result %d: got %v, want %v", i, results[i].Status, want)
		}
	}
}

func TestFixAll(t *testing.T) {
	passing := CheckResult{Name: "fixme", Status: StatusPass}
	fixable := &mockCheck{
		name:        "fixme",
		result:      CheckResult{Name: "fixme", Status: StatusWarn, Fixable: true},
		fixedResult: &passing,
	}
	broken := &mockCheck{
		name:   "broken",
		result: CheckResult{Name: "broken", Status: StatusFail, Message: "bad", Fixable: true},
		fixErr: errors.New("permission denied"),
	}
	manual := &mockCheck{
		name:   "manual",
		result: CheckResult{Name: "manual", Status: StatusFail},
	}
	fine := &mockCheck{
		name:   "fine",
		result: CheckResult{Name: "fine", Status: StatusPass, Fixable: true},
	}
	checks := []Check{fixable, broken, manual, fine}

	results, fixed := FixAll(context.Background(), checks, RunAll(context.Background(), checks))

	if fixed != 1 {
		t.Errorf("fixed = %d, want 1", fixed)
	}
	if results[0].Status != StatusPass {
		t.Errorf("fixable check not re-run after fix: %v", results[0].Status)
	}
	if !strings.Contains(results[1].Message, "fix failed: permission denied") {
		t.Errorf("failed fix not reported: %q", results[1].Message)
	}
	if manual.fixCalls != 0 || fine.fixCalls != 0 {
		t.Errorf("fix called for non-fixable or passing checks")
	}
}

func TestCountByStatus(t *testing.T) {
	results := []CheckResult{
		{Status: StatusPass},
		{Status: StatusPass},
		{Status: StatusWarn},
		{Status: StatusFail},
	}

	counts := CountByStatus(results)

	if counts[StatusPass] != 2 {
		t.Errorf("expected 2 pass, got %d", counts[StatusPass])
	}
	if counts[StatusWarn] != 1 {
		t.Errorf("expected 1 warn, got %d", counts[StatusWarn])
	}
	if counts[StatusFail] != 1 {
		t.Errorf("expected 1 fail, got %d", counts[StatusFail])
	}
}

func TestHasFailuresAndIssues(t *testing.T) {
	tests := []struct {
		name         string
		results      []CheckResult
		wantFailures bool
		wantIssues   bool
	}{
		{
			name:    "all pass",
			results: []CheckResult{{Status: StatusPass}, {Status: StatusPass}},
		},
		{
			name:       "with warn only",
			results:    []CheckResult{{Status: StatusPass}, {Status: StatusWarn}},
			wantIssues: true,
		},
		{
			name:         "with fail",
			results:      []CheckResult{{Status: StatusPass}, {Status: StatusFail}},
			wantFailures: true,
			wantIssues:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasFailures(tc.results); got != tc.wantFailures {
				t.Errorf("HasFailures() = %v, want %v", got, tc.wantFailures)
			}
			if got := HasIssues(tc.results); got != tc.wantIssues {
				t.Errorf("HasIssues() = %v, want %v", got, tc.wantIssues)
			}
		})
	}
}

func TestFixableCount(t *testing.T) {
	results := []CheckResult{
		{Status: StatusPass, Fixable: true},  // Pass, not counted
		{Status: StatusFail, Fixable: true},  // Counted
		{Status: StatusFail, Fixable: false}, // Not counted
		{Status: StatusWarn, Fixable: true},  // Counted
	}

	if got := FixableCount(results); got != 2 {
		t.Errorf("FixableCount() = %d, want 2", got)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name    string
		results []CheckResult
		want    string
	}{
		{name: "all good", results: []CheckResult{{Status: StatusPass}}, want: "Everything looks good"},
		{name: "one issue", results: []CheckResult{{Status: StatusFail}}, want: "1 issue found"},
		{name: "multiple issues", results: []CheckResult{{Status: StatusFail}, {Status: StatusWarn}}, want: "2 issues found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Summary(tc.results); got != tc.want {
				t.Errorf("Summary() = %q, want %q", got, tc.want)
			}
		})
	}
}
