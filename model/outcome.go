package model

type DeleteStatus int

const (
	StatusDeleted DeleteStatus = iota
	StatusFailed
)

// Outcome is the terminal result of attempting to delete one candidate.
// Err is set only when Status is StatusFailed.
type Outcome struct {
	Candidate Candidate
	Status    DeleteStatus
	Err       error
}
