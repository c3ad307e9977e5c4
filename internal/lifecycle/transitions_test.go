package lifecycle_test

import (
	"slices"
	"testing"

	"jobportal/application-service/internal/lifecycle"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	for _, s := range lifecycle.AllStatuses {
		got, err := lifecycle.ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_Normalises(t *testing.T) {
	for _, raw := range []string{"reviewing", " Reviewing", "REVIEWING\n"} {
		got, err := lifecycle.ParseStatus(raw)
		if err != nil || got != lifecycle.StatusReviewing {
			t.Errorf("ParseStatus(%q) = %q, %v", raw, got, err)
		}
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	for _, raw := range []string{"", "UNKNOWN", "WITHDRAWN", "HIRED"} {
		if _, err := lifecycle.ParseStatus(raw); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", raw)
		}
	}
}

// ── IsTransitionAllowed ────────────────────────────────────────────────────

func TestIsTransitionAllowed_ValidForward(t *testing.T) {
	cases := []struct {
		from lifecycle.Status
		to   lifecycle.Status
	}{
		{lifecycle.StatusPending, lifecycle.StatusReviewing},
		{lifecycle.StatusReviewing, lifecycle.StatusShortlisted},
		{lifecycle.StatusShortlisted, lifecycle.StatusInterviewed},
		{lifecycle.StatusInterviewed, lifecycle.StatusOffered},
		{lifecycle.StatusOffered, lifecycle.StatusAccepted},
	}
	for _, c := range cases {
		if !lifecycle.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_ToRejected(t *testing.T) {
	for _, from := range lifecycle.AllStatuses {
		want := !lifecycle.IsTerminal(from)
		if got := lifecycle.IsTransitionAllowed(from, lifecycle.StatusRejected); got != want {
			t.Errorf("IsTransitionAllowed(%s → REJECTED) = %v, want %v", from, got, want)
		}
	}
}

func TestIsTransitionAllowed_FromTerminal(t *testing.T) {
	for _, from := range []lifecycle.Status{lifecycle.StatusAccepted, lifecycle.StatusRejected} {
		if !lifecycle.IsTerminal(from) {
			t.Errorf("IsTerminal(%s) should be true", from)
		}
		for _, to := range lifecycle.AllStatuses {
			if lifecycle.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false (terminal state)", from, to)
			}
		}
	}
}

func TestIsTransitionAllowed_SkipAndBackward(t *testing.T) {
	cases := []struct {
		from lifecycle.Status
		to   lifecycle.Status
	}{
		{lifecycle.StatusPending, lifecycle.StatusShortlisted},
		{lifecycle.StatusPending, lifecycle.StatusAccepted},
		{lifecycle.StatusReviewing, lifecycle.StatusOffered},
		{lifecycle.StatusInterviewed, lifecycle.StatusAccepted},
		{lifecycle.StatusReviewing, lifecycle.StatusPending},
		{lifecycle.StatusOffered, lifecycle.StatusInterviewed},
		{lifecycle.StatusPending, lifecycle.StatusPending},
	}
	for _, c := range cases {
		if lifecycle.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_UnknownStatus(t *testing.T) {
	if lifecycle.IsTransitionAllowed("DRAFT", lifecycle.StatusReviewing) {
		t.Error("unknown source must have no transitions")
	}
	if lifecycle.IsTerminal("DRAFT") {
		t.Error("unknown status is not terminal")
	}
}

// ── Feedback and status config ─────────────────────────────────────────────

func TestRequiresFeedback(t *testing.T) {
	want := map[lifecycle.Status]bool{
		lifecycle.StatusPending:     false,
		lifecycle.StatusReviewing:   true,
		lifecycle.StatusShortlisted: true,
		lifecycle.StatusInterviewed: true,
		lifecycle.StatusOffered:     true,
		lifecycle.StatusAccepted:    false,
		lifecycle.StatusRejected:    true,
	}
	for s, w := range want {
		if got := lifecycle.RequiresFeedback(s); got != w {
			t.Errorf("RequiresFeedback(%s) = %v, want %v", s, got, w)
		}
	}
}

func TestStatusConfigMatchesGraph(t *testing.T) {
	cfg := lifecycle.StatusConfig()
	if len(cfg) != len(lifecycle.AllStatuses) {
		t.Fatalf("StatusConfig has %d entries, want %d", len(cfg), len(lifecycle.AllStatuses))
	}
	for _, from := range lifecycle.AllStatuses {
		info := cfg[from]
		if info.Label != string(from) || info.Description == "" {
			t.Errorf("%s: label/description = %q/%q", from, info.Label, info.Description)
		}
		if info.RequiresFeedback != lifecycle.RequiresFeedback(from) {
			t.Errorf("%s: requiresFeedback mismatch", from)
		}
		for _, to := range lifecycle.AllStatuses {
			listed := slices.Contains(info.AllowedTransitions, to)
			if listed != lifecycle.IsTransitionAllowed(from, to) {
				t.Errorf("%s → %s: listed=%v, allowed=%v", from, to, listed, !listed)
			}
		}
	}
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	next := lifecycle.AllowedNext(lifecycle.StatusPending)
	next[0] = lifecycle.StatusAccepted
	if lifecycle.AllowedNext(lifecycle.StatusPending)[0] != lifecycle.StatusReviewing {
		t.Error("AllowedNext must not expose the table")
	}
	if got := lifecycle.AllowedNext(lifecycle.StatusAccepted); len(got) != 0 || got == nil {
		t.Errorf("AllowedNext(ACCEPTED) = %#v, want empty non-nil", got)
	}
}
