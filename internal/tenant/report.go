package tenant

import (
	"fmt"
	"io"
	"strings"
)

const reportRule = "============================================================"

// WriteReport renders verification results in the operator-facing format:
// one [PASS]/[FAIL] block per check, a summary banner, and the expected
// scope listing.
func WriteReport(w io.Writer, results []Result, expectedScopes []string) {
	fmt.Fprintf(w, "\n%s\n", reportRule)
	fmt.Fprintln(w, "AUTH0 VERIFICATION RESULTS")
	fmt.Fprintf(w, "%s\n\n", reportRule)

	for _, r := range results {
		status := "[FAIL]"
		if r.Passed {
			status = "[PASS]"
		}

		fmt.Fprintf(w, "%s | %s\n", status, r.Name)
		fmt.Fprintf(w, "        %s\n", r.Message)
		for _, detail := range r.Details {
			fmt.Fprintf(w, "        > %s\n", detail)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, reportRule)
	if AllPassed(results) {
		fmt.Fprintln(w, "[OK] ALL CHECKS PASSED")
	} else {
		fmt.Fprintln(w, "[ERROR] SOME CHECKS FAILED")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "To fix issues, re-run the bootstrap:")
		fmt.Fprintln(w, "  auth0ctl bootstrap --yes --verbose")
	}
	fmt.Fprintln(w, reportRule)

	if len(expectedScopes) > 0 {
		fmt.Fprintln(w, "\nExpected scopes:")
		fmt.Fprintf(w, "  - %s\n", strings.Join(expectedScopes, "\n  - "))
	}
}
