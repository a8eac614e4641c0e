package tracker

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/remote"
)

// Associator attaches interview snapshots to the store's applications.
//
// At most one snapshot exists per application; whichever merge, lookup or
// save resolved last replaces the previous one wholesale.
type Associator struct {
	remote Remote
	store  *Store
	logger *slog.Logger
}

// MergeAll fetches every interview once and attaches each to its
// application in apps. Interviews for applications not in apps are dropped.
//
// A failure here is a merge warning: logged, never written to the error
// slot, and apps stays usable without interviews.
func (a *Associator) MergeAll(ctx context.Context, apps []model.Application) {
	interviews, err := a.listAll(ctx)
	if err != nil {
		warn := apperror.MergeWarning(err)
		a.logger.Warn("interview merge skipped",
			slog.String("error", warn.Message),
		)
		return
	}
	a.attach(apps, interviews)
}

func (a *Associator) listAll(ctx context.Context) ([]model.Interview, error) {
	raw, err := a.remote.ListInterviews(ctx)
	if err != nil {
		return nil, err
	}
	return decodeInterviews(raw)
}

func (a *Associator) attach(apps []model.Application, interviews []model.Interview) {
	index := make(map[int64]int, len(apps))
	for i, app := range apps {
		index[app.ID] = i
	}

	merged := 0
	for _, iv := range interviews {
		i, ok := index[iv.ApplicationID]
		if !ok {
			continue
		}
		snapshot := iv
		if apps[i].Interview == nil {
			merged++
		}
		apps[i].Interview = &snapshot
	}

	a.logger.Debug("interviews merged",
		slog.Int("received", len(interviews)),
		slog.Int("attached", merged),
	)
}

// LookupStatus tags the outcome of FetchOne.
type LookupStatus int

const (
	// LookupNotFound: the backend has no interview for the application.
	LookupNotFound LookupStatus = iota
	// LookupFound: Interview holds the snapshot.
	LookupFound
	// LookupFailed: the request failed; Err says why.
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupFailed:
		return "failed"
	default:
		return "not found"
	}
}

// Lookup is the result of FetchOne. "No interview" and "could not check"
// are different statuses, never the same nil.
type Lookup struct {
	Status    LookupStatus
	Interview *model.Interview
	Err       error
}

// FetchOne asks the backend for one application's interview.
//
//   - found     → the local slot is overwritten and the snapshot returned
//   - not found → the local slot is left as it was
//   - failed    → the error slot is set and the local slot left as it was
//
// A 404 is ambiguous: backends answer it both for "no interview yet" and
// for an application that does not exist (or is not the caller's). For an
// application the store holds it means "no interview". For one the store
// has never seen there is no evidence the application exists, so it is a
// failure carrying the server's message.
func (a *Associator) FetchOne(ctx context.Context, applicationID int64) Lookup {
	raw, err := a.remote.InterviewsForJob(ctx, applicationID)
	if remote.IsStatus(err, http.StatusNotFound) {
		if _, known := a.store.Application(applicationID); !known {
			return Lookup{Status: LookupFailed, Err: a.store.fail(apperror.Fetch(err, msgUnknownApplication))}
		}
		return Lookup{Status: LookupNotFound}
	}
	if err != nil {
		return Lookup{Status: LookupFailed, Err: a.store.fail(apperror.Fetch(err, msgInterviewFetchFailed))}
	}

	iv, found, err := decodeInterviewLookup(raw, applicationID)
	if err != nil {
		return Lookup{Status: LookupFailed, Err: a.store.fail(apperror.Fetch(err, msgInterviewFetchFailed))}
	}
	if !found {
		return Lookup{Status: LookupNotFound}
	}

	// The request named the application, so the snapshot lands there even
	// when the payload's own owner field disagrees.
	iv.ApplicationID = applicationID
	a.store.setInterview(applicationID, iv)
	return Lookup{Status: LookupFound, Interview: &iv}
}

// Save posts an interview for applicationID and, once acknowledged,
// replaces the local slot with the submitted values (not the server echo).
func (a *Associator) Save(ctx context.Context, applicationID int64, iv model.Interview) error {
	if _, err := a.remote.CreateInterview(ctx, model.NewInterviewPayload(applicationID, iv)); err != nil {
		return a.store.fail(apperror.Save(err, msgInterviewSaveFailed))
	}

	iv.ApplicationID = applicationID
	if !a.store.setInterview(applicationID, iv) {
		a.logger.Debug("saved interview for application not loaded locally",
			slog.Int64("applicationID", applicationID),
		)
	}
	return nil
}
