package tag

import (
	"errors"
	"testing"
)

func TestParseStable(t *testing.T) {
	got, err := Parse("v1.2.3")
	if err != nil {
		t.Fatalf("Parse(v1.2.3) error = %v", err)
	}
	want := Tag{Raw: "v1.2.3", Version: Version{1, 2, 3}, Stage: StageStable}
	if got != want {
		t.Errorf("Parse(v1.2.3) = %+v, want %+v", got, want)
	}
	if got.IsPrerelease() {
		t.Error("stable tag reported as pre-release")
	}
}

func TestParsePrerelease(t *testing.T) {
	got, err := Parse("v1.2.3-rc.4")
	if err != nil {
		t.Fatalf("Parse(v1.2.3-rc.4) error = %v", err)
	}
	want := Tag{Raw: "v1.2.3-rc.4", Version: Version{1, 2, 3}, Stage: StageRC, Sequence: 4}
	if got != want {
		t.Errorf("Parse(v1.2.3-rc.4) = %+v, want %+v", got, want)
	}
	if !got.IsPrerelease() {
		t.Error("rc tag not reported as pre-release")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"1.2.3",            // missing leading v
		"v1.2",             // missing patch
		"v1.2.3.4",         // too many components
		"v1.2.3-rc",        // missing sequence
		"v1.2.3-rc.",       // empty sequence
		"v1.2.3-gamma.1",   // unknown stage
		"v1.2.3-stable.1",  // stable is not a suffix stage
		"v1.2.3-rc.1.2",    // trailing garbage
		"v1.2.3-rc.-1",     // negative sequence
		"v-1.2.3",          // negative component
		"v1.2.3-alpha",     // missing sequence separator
		"v1.2.3 ",          // trailing space
		" v1.2.3",          // leading space
		"V1.2.3",           // uppercase v
		"v1.2.3-RC.1",      // uppercase stage
		"refs/tags/v1.2.3", // full ref, not a tag name
	}
	for _, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestParseOverflowIsMalformed(t *testing.T) {
	_, err := Parse("v99999999999999999999999999.0.0")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("overflowing component: error = %v, want ErrMalformed", err)
	}
}

// TestParseExclusive exercises the core grammar property: every string
// classifies as stable, as pre-release, or not at all, never as both.
func TestParseExclusive(t *testing.T) {
	cases := []struct {
		raw        string
		prerelease bool
	}{
		{"v0.0.0", false},
		{"v10.20.30", false},
		{"v0.2.0-alpha.0", true},
		{"v0.2.0-beta.12", true},
		{"v3.0.0-rc.1", true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.raw)
		if err != nil {
			t.Errorf("Parse(%q) error = %v", tc.raw, err)
			continue
		}
		if got.IsPrerelease() != tc.prerelease {
			t.Errorf("Parse(%q).IsPrerelease() = %v, want %v", tc.raw, got.IsPrerelease(), tc.prerelease)
		}
		if got.Raw != tc.raw {
			t.Errorf("Parse(%q).Raw = %q", tc.raw, got.Raw)
		}
	}
}

func TestStageOrder(t *testing.T) {
	if !(StageAlpha < StageBeta && StageBeta < StageRC && StageRC < StageStable) {
		t.Fatal("stage rank order broken")
	}
}

func TestParseStage(t *testing.T) {
	for name, want := range map[string]Stage{
		"alpha": StageAlpha, "beta": StageBeta, "rc": StageRC, "stable": StageStable,
	} {
		got, err := ParseStage(name)
		if err != nil || got != want {
			t.Errorf("ParseStage(%q) = %v, %v, want %v", name, got, err, want)
		}
	}
	if _, err := ParseStage("gamma"); err == nil {
		t.Error("ParseStage(gamma) accepted an unknown stage")
	}
	if _, err := ParseStage(""); err == nil {
		t.Error("ParseStage(\"\") accepted an empty stage")
	}
}

func TestStageTextRoundTrip(t *testing.T) {
	for _, s := range []Stage{StageAlpha, StageBeta, StageRC, StageStable} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", s, err)
		}
		var back Stage
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %q -> %v", s, text, back)
		}
	}
	if _, err := Stage(0).MarshalText(); err == nil {
		t.Error("MarshalText accepted the zero stage")
	}
}

func TestVersionString(t *testing.T) {
	v := Version{1, 22, 333}
	if v.String() != "1.22.333" {
		t.Errorf("Version.String() = %q", v.String())
	}
}
