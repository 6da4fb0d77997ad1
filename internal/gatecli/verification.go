package gatecli

import (
	"fmt"
	"slices"

	"github.com/okian/dabline/internal/gate"
)

// verifyArtifact checks that the summary, the blocking failures and the
// verdict agree with the per-case and per-preset reports.
func verifyArtifact(a *gate.Artifact) error {
	var casesPassed, presetsPassed int
	var failures []string
	seen := map[string]bool{}
	collect := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				failures = append(failures, n)
			}
		}
	}

	for _, c := range a.Cases {
		if c.Verdict == gate.VerdictPass {
			casesPassed++
		}
		collect(c.Failures)
	}
	for _, p := range a.Presets {
		if p.Verdict == gate.VerdictPass {
			presetsPassed++
		}
		collect(p.Failures)
	}

	switch {
	case a.Summary.CasesTotal != len(a.Cases) || a.Summary.CasesPassed != casesPassed:
		return fmt.Errorf("%w: cases %d/%d in summary, %d/%d in reports",
			ErrBadArtifact, a.Summary.CasesPassed, a.Summary.CasesTotal, casesPassed, len(a.Cases))
	case a.Summary.PresetsTotal != len(a.Presets) || a.Summary.PresetsPassed != presetsPassed:
		return fmt.Errorf("%w: presets %d/%d in summary, %d/%d in reports",
			ErrBadArtifact, a.Summary.PresetsPassed, a.Summary.PresetsTotal, presetsPassed, len(a.Presets))
	case !slices.Equal(a.BlockingFailures, failures):
		return fmt.Errorf("%w: blocking failures %v, reports list %v", ErrBadArtifact, a.BlockingFailures, failures)
	case a.Passed() != (len(failures) == 0):
		return fmt.Errorf("%w: verdict %s with %d blocking failures", ErrBadArtifact, a.Verdict, len(failures))
	}
	return nil
}
