package scenario

import (
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
)

// StepResult records one performed step.
type StepResult struct {
	Index    int
	Action   string
	Failures []string
}

// Result is the outcome of a run.
type Result struct {
	Name  string
	Steps []StepResult
	// HTML is the first editable root's content after the last step.
	HTML string
	// PickerClicks lists the media buttons clicked, in order.
	PickerClicks []string
	// Events counts the editor events published during the run, keyed by
	// topic base name.
	Events map[string]int
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return r.FailureCount() == 0
}

// FailureCount returns the number of failed checks.
func (r *Result) FailureCount() int {
	n := 0
	for _, s := range r.Steps {
		n += len(s.Failures)
	}
	return n
}

// Summary is a one-line human readable outcome.
func (r *Result) Summary() string {
	if r.Passed() {
		return fmt.Sprintf("PASS %s (%d steps)", r.Name, len(r.Steps))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "FAIL %s (%d failures)", r.Name, r.FailureCount())
	for _, s := range r.Steps {
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "\n  step %d: %s", s.Index, f)
		}
	}
	return b.String()
}

// JSON encodes the result:
//
//	{"name": ..., "passed": ..., "failures": n, "html": ...,
//	 "picker_clicks": [...], "events": {"editableKeyup": n, ...},
//	 "steps": [{"index": 1, "action": "type"}, ...]}
//
// Steps carry a "failures" array only when a check failed.
func (r *Result) JSON() (string, error) {
	out := "{}"
	set := func(path string, v any) error {
		next, err := sjson.Set(out, path, v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		out = next
		return nil
	}

	clicks := r.PickerClicks
	if clicks == nil {
		clicks = []string{}
	}
	events := r.Events
	if events == nil {
		events = map[string]int{}
	}
	for _, f := range []struct {
		path string
		v    any
	}{
		{"name", r.Name},
		{"passed", r.Passed()},
		{"failures", r.FailureCount()},
		{"html", r.HTML},
		{"picker_clicks", clicks},
		{"events", events},
		{"steps", []any{}},
	} {
		if err := set(f.path, f.v); err != nil {
			return "", err
		}
	}
	for i, s := range r.Steps {
		base := fmt.Sprintf("steps.%d.", i)
		if err := set(base+"index", s.Index); err != nil {
			return "", err
		}
		if err := set(base+"action", s.Action); err != nil {
			return "", err
		}
		if len(s.Failures) > 0 {
			if err := set(base+"failures", s.Failures); err != nil {
				return "", err
			}
		}
	}
	return out, nil
}
