package id

import "testing"

func TestNewAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	prefixes := []Prefix{
		PrefixJob, PrefixPlan, PrefixStep, PrefixWorkRecord,
		PrefixDetail, PrefixArchive, PrefixActivity, PrefixReconcile,
	}

	for _, p := range prefixes {
		t.Run(string(p), func(t *testing.T) {
			generated := New(p)
			if generated.IsNil() {
				t.Fatal("New returned nil ID")
			}
			if generated.Prefix() != p {
				t.Fatalf("prefix = %q, want %q", generated.Prefix(), p)
			}

			parsed, err := Parse(generated.String())
			if err != nil {
				t.Fatalf("Parse(%q): %v", generated.String(), err)
			}
			if parsed.String() != generated.String() {
				t.Fatalf("round trip mismatch: %q != %q", parsed.String(), generated.String())
			}
		})
	}
}

func TestParseRejectsEmptyAndGarbage(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "not a typeid", "job_"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	t.Parallel()

	jobID := NewJobID()
	if _, err := ParsePlanID(jobID.String()); err == nil {
		t.Fatal("ParsePlanID accepted a job-prefixed ID")
	}
}

func TestScanAndValue(t *testing.T) {
	t.Parallel()

	original := NewStepID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var scanned ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned.String() != original.String() {
		t.Fatalf("scan round trip mismatch: %q != %q", scanned.String(), original.String())
	}

	var fromNil ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !fromNil.IsNil() {
		t.Fatal("Scan(nil) produced a non-nil ID")
	}
}
