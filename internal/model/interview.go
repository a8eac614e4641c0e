package model

// Interview is the snapshot attached to an Application.
// At most one exists per application; a newer one replaces the old wholesale.
type Interview struct {
	ApplicationID int64  `json:"applicationId"`
	Date          string `json:"date"`
	Interviewer   string `json:"interviewer"`
	PrepNotes     string `json:"prepNotes"`
}

// JobRef nests an application ID inside a reference object: {"id": 3}.
type JobRef struct {
	ID int64 `json:"id"`
}

// InterviewPayload is the body POSTed to /interviews.
//
// The backend expects the owning application as a nested reference
// ({"job":{"id":3}}), not as a flat applicationId field.
type InterviewPayload struct {
	Job         JobRef `json:"job"`
	Date        string `json:"date"`
	Interviewer string `json:"interviewer"`
	PrepNotes   string `json:"prepNotes"`
}

// NewInterviewPayload builds the wire payload for applicationID.
func NewInterviewPayload(applicationID int64, iv Interview) InterviewPayload {
	return InterviewPayload{
		Job:         JobRef{ID: applicationID},
		Date:        iv.Date,
		Interviewer: iv.Interviewer,
		PrepNotes:   iv.PrepNotes,
	}
}

// InterviewRecord is an interview as the backend stores and returns it.
type InterviewRecord struct {
	ID          int64  `json:"id"`
	Job         JobRef `json:"job"`
	Date        string `json:"date"`
	Interviewer string `json:"interviewer"`
	PrepNotes   string `json:"prepNotes"`
}
