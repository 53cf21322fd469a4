package agent

import "fmt"

// Truncate caps output at maxChars using a head/tail split, replacing the
// middle with a marker stating how many characters were removed. A
// non-positive limit disables truncation.
func Truncate(output string, maxChars int) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	half := maxChars / 2
	removed := len(output) - maxChars
	return output[:half] +
		fmt.Sprintf("\n\n[WARNING: Output was truncated. %d characters were removed from the middle. "+
			"Re-run the command with more targeted arguments if you need the elided portion.]\n\n", removed) +
		output[len(output)-half:]
}
