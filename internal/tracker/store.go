// Package tracker keeps the local, authenticated view of the user's job
// applications in sync with the backend.
//
//	caller → Store.FetchApplications → GET /jobs → owner filter → dedupe/sort
//	                                 → Associator.MergeAll (GET /interviews)
//	                                 → publish
//
// MUTATION POLICY:
//   - Update, delete and interview save are ack-gated: the local copy only
//     changes after the backend accepted the call.
//   - AddApplication is the one optimistic operation: a local append with no
//     remote confirmation and no dedup.
//
// KNOWN RACE:
// A fetch cycle works on its own slice and publishes it in one step at the
// end. A mutation that is acknowledged while a cycle is in flight updates
// the current collection, and the cycle's publish then replaces it. The last
// publish wins. Overlapping fetch cycles on one Store do not race: they are
// coalesced (see FetchApplications).
package tracker

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/remote"
)

const (
	msgFetchFailed          = "Failed to fetch applications"
	msgUpdateFailed         = "Failed to update application"
	msgDescriptionFailed    = "Failed to update job description"
	msgDeleteFailed         = "Failed to delete application"
	msgInterviewFetchFailed = "Failed to fetch interview"
	msgInterviewSaveFailed  = "Failed to save interview"
	msgUnknownApplication   = "Application not found"
)

// Remote is the slice of the backend the tracker consumes. *remote.Client
// satisfies it; tests use an in-memory fake.
type Remote interface {
	ListJobs(ctx context.Context) ([]byte, error)
	PatchJob(ctx context.Context, id int64, patch model.ApplicationPatch) ([]byte, error)
	DeleteJob(ctx context.Context, id int64) error
	ListInterviews(ctx context.Context) ([]byte, error)
	InterviewsForJob(ctx context.Context, applicationID int64) ([]byte, error)
	CreateInterview(ctx context.Context, payload model.InterviewPayload) ([]byte, error)
}

// compile-time check that *remote.Client implements Remote
var _ Remote = (*remote.Client)(nil)

// Identity tells the store who the session user is. *session.State
// satisfies it.
type Identity interface {
	UserID() (int64, bool)
}

// OwnerFilter decides what is visible when no session user is resolved.
type OwnerFilter int

const (
	// OwnerFilterStrict shows nothing without a session user.
	OwnerFilterStrict OwnerFilter = iota
	// OwnerFilterShowAll passes every record through without a session
	// user. With a user, records are still filtered to that user.
	OwnerFilterShowAll
)

// String returns the config spelling of f.
func (f OwnerFilter) String() string {
	if f == OwnerFilterShowAll {
		return "show-all"
	}
	return "strict"
}

// Options tunes a Store.
type Options struct {
	OwnerFilter OwnerFilter
}

// Store is the ordered in-memory collection of applications.
//
// Every accessor returns copies; callers never hold store-owned memory.
// The mutex guards apps, loading and errMsg and is never held across a
// remote call.
type Store struct {
	remote     Remote
	identity   Identity
	filter     OwnerFilter
	logger     *slog.Logger
	interviews *Associator
	flight     singleflight.Group

	mu      sync.RWMutex
	apps    []model.Application
	loading bool
	errMsg  string
}

// NewStore creates an empty Store.
func NewStore(r Remote, identity Identity, logger *slog.Logger, opts Options) *Store {
	s := &Store{
		remote:   r,
		identity: identity,
		filter:   opts.OwnerFilter,
		logger:   logger,
	}
	s.interviews = &Associator{remote: r, store: s, logger: logger}
	return s
}

// Interviews returns the associator bound to this store.
func (s *Store) Interviews() *Associator { return s.interviews }

// =========================================================================
// FETCH CYCLE
// =========================================================================

// fetchKey is the single-flight key. One Store has one collection, so every
// fetch shares it.
const fetchKey = "applications"

// FetchApplications runs one fetch/merge cycle.
//
// WHY SINGLE-FLIGHT (coalesce, not cancel-and-restart)?
// Both cycles would ask the same backend for the same data. Joining the one
// already in flight gives every caller a consistent result and removes the
// "stale cycle publishes last" race entirely.
//
// The shared cycle runs on a context detached from any single caller, so a
// caller that gives up (ctx cancelled) stops waiting without aborting the
// cycle for the others.
func (s *Store) FetchApplications(ctx context.Context) error {
	cycleCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(fetchKey, func() (any, error) {
		return nil, s.fetchCycle(cycleCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight fetch cycle")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) fetchCycle(ctx context.Context) error {
	s.beginFetch()
	defer s.endFetch()

	raw, err := s.remote.ListJobs(ctx)
	if err != nil {
		return s.fail(apperror.Fetch(err, msgFetchFailed))
	}
	fetched, err := decodeApplications(raw)
	if err != nil {
		return s.fail(apperror.Fetch(err, msgFetchFailed))
	}

	apps := s.dedupe(s.visible(fetched))
	for i := range apps {
		apps[i].Interview = nil
	}
	slices.SortFunc(apps, func(a, b model.Application) int {
		return cmp.Compare(a.ID, b.ID)
	})

	s.interviews.MergeAll(ctx, apps)

	s.mu.Lock()
	s.apps = apps
	s.mu.Unlock()

	s.logger.Info("applications fetched", slog.Int("count", len(apps)))
	return nil
}

// visible applies the ownership filter.
func (s *Store) visible(apps []model.Application) []model.Application {
	uid, ok := s.identity.UserID()
	if !ok {
		if s.filter == OwnerFilterShowAll {
			return apps
		}
		if len(apps) > 0 {
			s.logger.Warn("no session user, hiding all applications",
				slog.Int("fetched", len(apps)),
			)
		}
		return nil
	}

	out := apps[:0]
	for _, app := range apps {
		if app.Owner != nil && app.Owner.ID == uid {
			out = append(out, app)
		}
	}
	return out
}

// dedupe keeps the first occurrence of each id. Duplicate ids mean the
// backend broke its own uniqueness guarantee, so each one is logged.
func (s *Store) dedupe(apps []model.Application) []model.Application {
	seen := make(map[int64]struct{}, len(apps))
	out := make([]model.Application, 0, len(apps))
	for _, app := range apps {
		if _, dup := seen[app.ID]; dup {
			s.logger.Warn("duplicate application id in payload, keeping first",
				slog.Int64("applicationID", app.ID),
			)
			continue
		}
		seen[app.ID] = struct{}{}
		out = append(out, app)
	}
	return out
}

func (s *Store) beginFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.errMsg = ""
}

func (s *Store) endFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

// fail records err in the error slot and returns it.
func (s *Store) fail(err *apperror.AppError) error {
	s.mu.Lock()
	s.errMsg = err.Message
	s.mu.Unlock()

	s.logger.Warn("tracker operation failed", slog.String("error", err.Message))
	return err
}

// =========================================================================
// MUTATIONS
// =========================================================================

// UpdateApplication sends a partial update and, once acknowledged, applies
// it to the local record. The remote call happens even if id is not loaded
// locally; no local record is created in that case.
func (s *Store) UpdateApplication(ctx context.Context, id int64, patch model.ApplicationPatch) error {
	return s.patch(ctx, id, patch, msgUpdateFailed)
}

// UpdateJobDescription updates only the job description.
func (s *Store) UpdateJobDescription(ctx context.Context, id int64, text string) error {
	return s.patch(ctx, id, model.ApplicationPatch{JobDescription: &text}, msgDescriptionFailed)
}

func (s *Store) patch(ctx context.Context, id int64, patch model.ApplicationPatch, fallback string) error {
	if _, err := s.remote.PatchJob(ctx, id, patch); err != nil {
		return s.fail(apperror.Update(err, fallback))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		patch.ApplyTo(&s.apps[i])
	}
	return nil
}

// DeleteApplication deletes remotely, then locally.
func (s *Store) DeleteApplication(ctx context.Context, id int64) error {
	if err := s.remote.DeleteJob(ctx, id); err != nil {
		return s.fail(apperror.Delete(err, msgDeleteFailed))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps = slices.DeleteFunc(s.apps, func(a model.Application) bool { return a.ID == id })
	return nil
}

// AddApplication appends app locally without telling the backend.
// A retried call appends twice.
func (s *Store) AddApplication(app model.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps = append(s.apps, app.Clone())
}

// =========================================================================
// READ SIDE
// =========================================================================

// Applications returns copies of every record, in order.
func (s *Store) Applications() []model.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Application, len(s.apps))
	for i, app := range s.apps {
		out[i] = app.Clone()
	}
	return out
}

// Application returns a copy of the record with id.
func (s *Store) Application(id int64) (model.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.apps[i].Clone(), true
	}
	return model.Application{}, false
}

// Loading reports whether a fetch cycle is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error slot: the message of the last failed operation
// since the most recent fetch cycle started, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.apps, func(a model.Application) bool { return a.ID == id })
}

// setInterview replaces the interview slot of id, if it is loaded.
func (s *Store) setInterview(id int64, iv model.Interview) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.apps[i].Interview = &iv
	return true
}
