package dispatch

// Report summarizes one dispatch pass. It exists for operator
// visibility; correctness is carried by the ledger, not these counters.
type Report struct {
	Sent            int
	SkippedByFilter int
	SkippedByDedup  int
	Failed          int
}

func (r Report) Total() int {
	return r.Sent + r.SkippedByFilter + r.SkippedByDedup + r.Failed
}
