package workflow

type Stage string

const (
	StageBirthdays    Stage = "birthdays"
	StageNationalDays Stage = "national_days"
	StageWeather      Stage = "weather"
)

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"   // nothing to announce, or the source was unavailable
	OutcomeCompleted Outcome = "completed" // every attempted message was delivered
	OutcomeDegraded  Outcome = "degraded"  // at least one message failed
	OutcomeFailed    Outcome = "failed"    // the stage aborted the run
)

type StageReport struct {
	Stage     Stage
	Outcome   Outcome
	Attempted int
	Delivered int
	Failed    int
	Err       string
}

func (s *StageReport) settle() {
	switch {
	case s.Attempted == 0:
		s.Outcome = OutcomeSkipped
	case s.Failed > 0:
		s.Outcome = OutcomeDegraded
	default:
		s.Outcome = OutcomeCompleted
	}
}

// Report summarizes a run for logs and tests. The invocation status never
// depends on it.
type Report struct {
	RunID        string
	Birthdays    StageReport
	NationalDays StageReport
	Weather      StageReport
}

func (r Report) Stages() []StageReport {
	return []StageReport{r.Birthdays, r.NationalDays, r.Weather}
}

func (r Report) Delivered() int {
	n := 0
	for _, s := range r.Stages() {
		n += s.Delivered
	}
	return n
}

func (r Report) Failed() int {
	n := 0
	for _, s := range r.Stages() {
		n += s.Failed
	}
	return n
}
