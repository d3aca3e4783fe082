package source

// Result is one probe outcome. A Result with Err set counts as "no".
type Result struct {
	Kind   Kind
	Active bool
	Err    error
}

// AnyActive folds results into "any true", ignoring failed probes.
func AnyActive(results ...Result) bool {
	for _, r := range results {
		if r.Err == nil && r.Active {
			return true
		}
	}
	return false
}

// Failed returns the results that carry an error.
func Failed(results ...Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
