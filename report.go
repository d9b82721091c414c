package pageready

import (
	"fmt"
	"strings"
	"testing"
)

// Message formats the result for a test log or CLI output.
func (r Result) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pageready: %s: %s: ", r.Scenario, r.Outcome)
	if r.Outcome == Error && r.Err != nil {
		b.WriteString(r.Err.Error())
	} else {
		b.WriteString(r.Reason)
	}
	if r.Outcome != Pass && !r.Snapshot.Empty() {
		fmt.Fprintf(&b, "\n    diagnostics:\n%s", r.Snapshot)
	}
	if r.Artifacts != "" {
		fmt.Fprintf(&b, "\n    artifacts: %s", r.Artifacts)
	}
	return b.String()
}

// Report maps a result onto t: Pass logs, Skip skips, Fail and Error fail
// the test immediately.
func Report(t testing.TB, r Result) {
	t.Helper()
	switch r.Outcome {
	case Pass:
		t.Log(r.Message())
	case Skip:
		t.Skip(r.Message())
	default:
		t.Fatal(r.Message())
	}
}
