package types

// OutcomeStatus tags how a prompted-JSON operation ended
type OutcomeStatus string

const (
	StatusOK       OutcomeStatus = "ok"
	StatusUnparsed OutcomeStatus = "unparsed"
	StatusFailed   OutcomeStatus = "failed"
)

// Outcome is embedded in every AI result. The zero value reports ok.
type Outcome struct {
	status OutcomeStatus
	err    error
}

func Succeeded() Outcome { return Outcome{status: StatusOK} }

func Unparsed() Outcome { return Outcome{status: StatusUnparsed} }

func Failed(err error) Outcome { return Outcome{status: StatusFailed, err: err} }

func (o Outcome) Status() OutcomeStatus {
	if o.status == "" {
		return StatusOK
	}
	return o.status
}

func (o Outcome) OK() bool { return o.Status() == StatusOK }

// Err is the cause of a failed outcome, nil otherwise
func (o Outcome) Err() error { return o.err }
