package ingest

// UpsertSummary reports per-record outcomes of one idempotent batch write.
// Failures never abort the batch; the offending keys are carried here so
// the run report can surface them.
type UpsertSummary struct {
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
	Failures []Failure
}

type Failure struct {
	Key    string
	Reason string
}

func (s *UpsertSummary) RecordFailure(key, reason string) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{Key: key, Reason: reason})
}

func (s *UpsertSummary) Add(other UpsertSummary) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Failures = append(s.Failures, other.Failures...)
}

func (s UpsertSummary) Total() int {
	return s.Inserted + s.Updated + s.Skipped + s.Failed
}
