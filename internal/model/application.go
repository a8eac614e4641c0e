package model

// Application is a single job application tracked for a user.
//
// The `json:"..."` tags follow the backend's camelCase payload shape, e.g.
//
//	{"id":3,"title":"Backend Engineer","company":"Acme","dateApplied":"2025-01-04",
//	 "status":"applied","notes":"","owner":{"id":7}}
//
// Interview is never sent by the backend as part of /jobs. The client attaches
// it during the merge phase of a fetch cycle (see tracker.Associator).
type Application struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	DateApplied    string     `json:"dateApplied"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
	JobDescription *string    `json:"jobDescription,omitempty"`
	Interview      *Interview `json:"interview,omitempty"`
	Owner          *UserRef   `json:"owner,omitempty"`
}

// Clone returns a deep copy so callers can never alias store-owned memory.
func (a Application) Clone() Application {
	out := a
	if a.JobDescription != nil {
		jd := *a.JobDescription
		out.JobDescription = &jd
	}
	if a.Interview != nil {
		iv := *a.Interview
		out.Interview = &iv
	}
	if a.Owner != nil {
		o := *a.Owner
		out.Owner = &o
	}
	return out
}

// ApplicationPatch is a partial update. Nil fields are left untouched, both
// on the wire (omitempty on pointers) and when applied locally.
//
// Owner and Interview are deliberately absent: the client never patches them.
type ApplicationPatch struct {
	Title          *string `json:"title,omitempty"`
	Company        *string `json:"company,omitempty"`
	DateApplied    *string `json:"dateApplied,omitempty"`
	Status         *string `json:"status,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	JobDescription *string `json:"jobDescription,omitempty"`
}

// IsEmpty reports whether the patch sets no field at all.
func (p ApplicationPatch) IsEmpty() bool {
	return p.Title == nil && p.Company == nil && p.DateApplied == nil &&
		p.Status == nil && p.Notes == nil && p.JobDescription == nil
}

// ApplyTo overwrites the set fields of a, field by field.
func (p ApplicationPatch) ApplyTo(a *Application) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Company != nil {
		a.Company = *p.Company
	}
	if p.DateApplied != nil {
		a.DateApplied = *p.DateApplied
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.JobDescription != nil {
		jd := *p.JobDescription
		a.JobDescription = &jd
	}
}
