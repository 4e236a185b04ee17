package contract

import "testing"

func TestParseStatusAcceptsKnownValues(t *testing.T) {
	for _, s := range AllStatuses() {
		got, err := ParseStatus(" " + string(s) + " ")
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		if got != s {
			t.Fatalf("parse %s = %s", s, got)
		}
	}
	if _, err := ParseStatus("FULLY_SIGNED"); err != nil {
		t.Fatalf("expected case-insensitive parse, got %v", err)
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Fatalf("expected unknown status error")
	}
}

func TestStatusRankingAndTerminal(t *testing.T) {
	if !StatusPartiallySigned.AtLeast(StatusSentForSignature) {
		t.Fatalf("partially signed should rank past sent")
	}
	if StatusReadyForReview.AtLeast(StatusSentForSignature) {
		t.Fatalf("ready for review should rank before sent")
	}
	if StatusCancelled.AtLeast(StatusDraft) {
		t.Fatalf("terminal statuses never count as progressed")
	}
	if !StatusExpired.Terminal() || StatusCompleted.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
	if Status("bogus").Rank() != -1 {
		t.Fatalf("unknown status should rank -1")
	}
	if len(AllStatuses()) != 22 {
		t.Fatalf("expected 22 statuses, got %d", len(AllStatuses()))
	}
}

func TestFriendlyName(t *testing.T) {
	cases := map[Status]string{
		"":                      "Not created",
		StatusFullySigned:       "Fully signed",
		StatusPDFGenerated:      "PDF generated",
		StatusSentForSignature:  "Sent for signature",
		StatusAIReviewCompleted: "AI review completed",
		"on_hold":               "On hold",
		"_escalated":            "Escalated",
		"__":                    "Unknown",
	}
	for status, want := range cases {
		if got := status.FriendlyName(); got != want {
			t.Fatalf("FriendlyName(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestSignatureProgress(t *testing.T) {
	if got := SignatureProgress(nil); got != 0 {
		t.Fatalf("nil contract progress = %d", got)
	}
	c := &Contract{Status: StatusSentForSignature, RequiredSignatures: 2}
	if got := SignatureProgress(c); got != 0 {
		t.Fatalf("unsigned progress = %d", got)
	}
	c.Status = StatusPartiallySigned
	c.Signatures = []Signature{{Party: "first"}}
	if got := SignatureProgress(c); got != 50 {
		t.Fatalf("partial progress = %d, want 50", got)
	}
	c.Signatures = append(c.Signatures, Signature{Party: "second"})
	if got := SignatureProgress(c); got != 99 {
		t.Fatalf("all signatures without backend confirmation = %d, want 99", got)
	}
	c.Status = StatusFullySigned
	c.Signatures = nil
	if got := SignatureProgress(c); got != 100 {
		t.Fatalf("fully signed progress = %d, want 100", got)
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"jane@example.com", "a.b+c@sub.example.org"}
	invalid := []string{"", "jane", "jane@", "Jane <jane@example.com>", " jane@example.com"}
	for _, v := range valid {
		if !ValidEmail(v) {
			t.Fatalf("expected %q valid", v)
		}
	}
	for _, v := range invalid {
		if ValidEmail(v) {
			t.Fatalf("expected %q invalid", v)
		}
	}
}

func TestTemplateRequiredWitnesses(t *testing.T) {
	var nilTemplate *Template
	if nilTemplate.RequiredWitnesses() != 0 {
		t.Fatalf("nil template requires no witnesses")
	}
	tpl := &Template{Legal: LegalMetadata{RequiresWitnesses: true}}
	if tpl.RequiredWitnesses() != 1 {
		t.Fatalf("default min witnesses should be 1")
	}
	tpl.Legal.MinWitnesses = 2
	if tpl.RequiredWitnesses() != 2 {
		t.Fatalf("expected 2 witnesses")
	}
}

func TestAIUsageRemaining(t *testing.T) {
	u := AIUsage{Suggestions: 2, ClauseGenerations: 3, Reviews: 1}
	if u.Remaining() != -1 {
		t.Fatalf("unlimited usage should report -1")
	}
	u.Limit = 10
	if u.Remaining() != 4 {
		t.Fatalf("remaining = %d, want 4", u.Remaining())
	}
	u.Limit = 3
	if u.Remaining() != 0 {
		t.Fatalf("remaining should floor at 0")
	}
}
