package tracker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeRemote is an in-memory Remote. Payloads are raw JSON strings so each
// test can use exactly the shape it is about.
type fakeRemote struct {
	mu sync.Mutex

	jobs          string
	jobsErr       error
	interviews    string
	interviewsErr error
	lookup        map[int64]string
	lookupErr     error
	patchErr      error
	deleteErr     error
	createErr     error

	// gate, when non-nil, blocks ListJobs until it is closed. entered
	// receives one value each time ListJobs starts.
	gate    chan struct{}
	entered chan struct{}

	listJobsCalls       int
	listInterviewsCalls int
	patches             []patchCall
	deletes             []int64
	created             []model.InterviewPayload
}

type patchCall struct {
	id    int64
	patch model.ApplicationPatch
}

func (f *fakeRemote) ListJobs(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	f.listJobsCalls++
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	return []byte(f.jobs), nil
}

func (f *fakeRemote) PatchJob(_ context.Context, id int64, patch model.ApplicationPatch) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{id: id, patch: patch})
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	return []byte(`{}`), nil
}

func (f *fakeRemote) DeleteJob(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

func (f *fakeRemote) ListInterviews(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listInterviewsCalls++
	if f.interviewsErr != nil {
		return nil, f.interviewsErr
	}
	if f.interviews == "" {
		return []byte(`[]`), nil
	}
	return []byte(f.interviews), nil
}

func (f *fakeRemote) InterviewsForJob(_ context.Context, id int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return []byte(f.lookup[id]), nil
}

func (f *fakeRemote) CreateInterview(_ context.Context, payload model.InterviewPayload) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, payload)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return []byte(`{"id":100,"job":{"id":999},"date":"server echo"}`), nil
}

// fakeIdentity is a fixed session user (or none).
type fakeIdentity struct {
	id int64
	ok bool
}

func (f fakeIdentity) UserID() (int64, bool) { return f.id, f.ok }

func user(id int64) fakeIdentity { return fakeIdentity{id: id, ok: true} }

var anonymous = fakeIdentity{}

// payloadErr carries a server message, like remote.StatusError.
type payloadErr struct{ msg string }

func (e payloadErr) Error() string         { return "remote: status 500" }
func (e payloadErr) ServerMessage() string { return e.msg }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(r *fakeRemote, id Identity) *Store {
	return NewStore(r, id, testLogger(), Options{})
}

func ids(apps []model.Application) []int64 {
	out := make([]int64, len(apps))
	for i, a := range apps {
		out[i] = a.ID
	}
	return out
}

// loaded returns a store already holding the given jobs payload for user 7.
func loaded(t *testing.T, r *fakeRemote) *Store {
	t.Helper()
	s := newTestStore(r, user(7))
	require.NoError(t, s.FetchApplications(context.Background()))
	return s
}

const twoJobs = `[
	{"id":3,"title":"Backend","company":"Acme","status":"applied","owner":{"id":7}},
	{"id":9,"title":"Platform","company":"Globex","status":"interview","owner":{"id":7}}
]`

// =========================================================================
// FETCH CYCLE: ORDER, UNIQUENESS, OWNERSHIP
// =========================================================================

func TestFetch_SortsAscending(t *testing.T) {
	r := &fakeRemote{jobs: `[{"id":9,"owner":{"id":7}},{"id":3,"owner":{"id":7}}]`}
	s := newTestStore(r, user(7))

	require.NoError(t, s.FetchApplications(context.Background()))

	assert.Equal(t, []int64{3, 9}, ids(s.Applications()))
	assert.False(t, s.Loading())
	assert.Empty(t, s.Err())
}

func TestFetch_StringIDDoesNotFailTheCycle(t *testing.T) {
	r := &fakeRemote{jobs: `[{"id":"9","title":"Platform","owner":{"id":7}},{"id":3,"owner":{"id":7}}]`}
	s := newTestStore(r, user(7))

	require.NoError(t, s.FetchApplications(context.Background()))

	assert.Equal(t, []int64{3, 9}, ids(s.Applications()))
	app, ok := s.Application(9)
	require.True(t, ok)
	assert.Equal(t, "Platform", app.Title)
}

func TestFetch_DuplicateIDsKeepFirst(t *testing.T) {
	r := &fakeRemote{jobs: `[
		{"id":9,"title":"first","owner":{"id":7}},
		{"id":3,"owner":{"id":7}},
		{"id":9,"title":"second","owner":{"id":7}}
	]`}
	s := newTestStore(r, user(7))

	require.NoError(t, s.FetchApplications(context.Background()))

	assert.Equal(t, []int64{3, 9}, ids(s.Applications()))
	app, ok := s.Application(9)
	require.True(t, ok)
	assert.Equal(t, "first", app.Title)
}

func TestFetch_OwnershipFilter(t *testing.T) {
	payload := `[
		{"id":1,"owner":{"id":7}},
		{"id":2,"owner":{"id":8}},
		{"id":3,"userId":7},
		{"id":4}
	]`

	tests := []struct {
		name     string
		identity Identity
		filter   OwnerFilter
		want     []int64
	}{
		{"user sees only own records", user(7), OwnerFilterStrict, []int64{1, 3}},
		{"show-all still filters a known user", user(8), OwnerFilterShowAll, []int64{2}},
		{"no user, strict shows nothing", anonymous, OwnerFilterStrict, []int64{}},
		{"no user, show-all passes everything", anonymous, OwnerFilterShowAll, []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(&fakeRemote{jobs: payload}, tt.identity, testLogger(), Options{OwnerFilter: tt.filter})
			require.NoError(t, s.FetchApplications(context.Background()))
			assert.Equal(t, tt.want, ids(s.Applications()))
		})
	}
}

// =========================================================================
// FETCH CYCLE: INTERVIEW MERGE
// =========================================================================

func TestFetch_MergesCurrentAndLegacyInterviewShapes(t *testing.T) {
	r := &fakeRemote{
		jobs: twoJobs,
		interviews: `[
			{"job":{"id":3},"date":"2025-03-01","interviewer":"Kim"},
			{"applicationId":9,"date":"2025-03-05","interviewer":"Lee"},
			{"job":{"id":42},"date":"someone else's"}
		]`,
	}
	s := loaded(t, r)

	apps := s.Applications()
	require.Len(t, apps, 2, "the interview for 42 must not create a record")
	require.NotNil(t, apps[0].Interview)
	assert.Equal(t, "Kim", apps[0].Interview.Interviewer)
	require.NotNil(t, apps[1].Interview)
	assert.Equal(t, "Lee", apps[1].Interview.Interviewer)
	assert.Equal(t, 1, r.listInterviewsCalls, "interviews are fetched once per cycle")
}

func TestFetch_InterviewSlotResetEachCycle(t *testing.T) {
	r := &fakeRemote{
		jobs:       twoJobs,
		interviews: `[{"job":{"id":3},"date":"2025-03-01"}]`,
	}
	s := loaded(t, r)
	app, _ := s.Application(3)
	require.NotNil(t, app.Interview)

	r.interviews = `[]`
	require.NoError(t, s.FetchApplications(context.Background()))

	app, _ = s.Application(3)
	assert.Nil(t, app.Interview, "no matching interview in this cycle means no slot")
}

func TestFetch_LaterInterviewReplacesEarlier(t *testing.T) {
	r := &fakeRemote{
		jobs: twoJobs,
		interviews: `[
			{"job":{"id":3},"date":"old","interviewer":"Kim","prepNotes":"notes"},
			{"job":{"id":3},"date":"new","interviewer":"Lee"}
		]`,
	}
	s := loaded(t, r)

	app, _ := s.Application(3)
	require.NotNil(t, app.Interview)
	assert.Equal(t, "new", app.Interview.Date)
	assert.Empty(t, app.Interview.PrepNotes, "replacement is wholesale, not field-wise")
}

func TestFetch_InterviewFailureIsOnlyAWarning(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs, interviewsErr: errors.New("connection reset")}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s := NewStore(r, user(7), logger, Options{})

	require.NoError(t, s.FetchApplications(context.Background()))

	assert.Equal(t, []int64{3, 9}, ids(s.Applications()))
	assert.Empty(t, s.Err(), "merge warnings never reach the error slot")
	for _, app := range s.Applications() {
		assert.Nil(t, app.Interview)
	}

	// The cycle has returned, so the merge goroutine is done writing.
	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="interview merge skipped"`)
	assert.Contains(t, out, "connection reset")
}

// =========================================================================
// FETCH CYCLE: FAILURES AND THE ERROR SLOT
// =========================================================================

func TestFetch_FailureKeepsStaleCollection(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)

	r.jobsErr = payloadErr{msg: "database unavailable"}
	err := s.FetchApplications(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrFetch))
	assert.Equal(t, "database unavailable", s.Err())
	assert.Equal(t, []int64{3, 9}, ids(s.Applications()), "previous collection stays")
	assert.False(t, s.Loading())
}

func TestFetch_FallbackMessage(t *testing.T) {
	s := newTestStore(&fakeRemote{jobsErr: errors.New("")}, user(7))

	err := s.FetchApplications(context.Background())

	assert.EqualError(t, err, "Failed to fetch applications")
	assert.Equal(t, "Failed to fetch applications", s.Err())
}

func TestFetch_MalformedPayload(t *testing.T) {
	s := newTestStore(&fakeRemote{jobs: `{"jobs":[]}`}, user(7))

	err := s.FetchApplications(context.Background())

	assert.True(t, errors.Is(err, apperror.ErrFetch))
	assert.NotEmpty(t, s.Err())
}

func TestErrorSlot_ClearedOnlyByFetch(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)

	r.deleteErr = payloadErr{msg: "locked"}
	require.Error(t, s.DeleteApplication(context.Background(), 3))
	assert.Equal(t, "locked", s.Err())

	// A later successful mutation does not clear it.
	title := "Senior Backend"
	require.NoError(t, s.UpdateApplication(context.Background(), 3, model.ApplicationPatch{Title: &title}))
	assert.Equal(t, "locked", s.Err())

	require.NoError(t, s.FetchApplications(context.Background()))
	assert.Empty(t, s.Err())
}

// =========================================================================
// FETCH CYCLE: SINGLE-FLIGHT
// =========================================================================

func TestFetch_OverlappingCallsCoalesce(t *testing.T) {
	r := &fakeRemote{
		jobs:    twoJobs,
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	s := newTestStore(r, user(7))

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = s.FetchApplications(context.Background())
	}()
	<-r.entered
	assert.True(t, s.Loading())

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[1] = s.FetchApplications(context.Background())
	}()
	// Give the second caller time to join the in-flight cycle.
	time.Sleep(50 * time.Millisecond)
	close(r.gate)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 1, r.listJobsCalls, "the second call joins the first")
	assert.Equal(t, []int64{3, 9}, ids(s.Applications()))
	assert.False(t, s.Loading())
}

func TestFetch_CallerCancellationDoesNotAbortCycle(t *testing.T) {
	r := &fakeRemote{
		jobs:    twoJobs,
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	s := newTestStore(r, user(7))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.FetchApplications(ctx) }()
	<-r.entered

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(r.gate)
	// Joining (or starting a fresh cycle) waits for the data to land.
	require.NoError(t, s.FetchApplications(context.Background()))
	assert.Equal(t, []int64{3, 9}, ids(s.Applications()))
}

// =========================================================================
// MUTATIONS
// =========================================================================

func TestUpdateApplication(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)

	status, notes := "offer", "negotiate"
	require.NoError(t, s.UpdateApplication(context.Background(), 3, model.ApplicationPatch{
		Status: &status, Notes: &notes,
	}))

	app, _ := s.Application(3)
	assert.Equal(t, "offer", app.Status)
	assert.Equal(t, "negotiate", app.Notes)
	assert.Equal(t, "Backend", app.Title, "fields not in the patch are untouched")
	require.NotNil(t, app.Owner)
	assert.Equal(t, int64(7), app.Owner.ID)
}

func TestUpdateApplication_UnknownIDStillCallsRemote(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)

	status := "rejected"
	require.NoError(t, s.UpdateApplication(context.Background(), 77, model.ApplicationPatch{Status: &status}))

	require.Len(t, r.patches, 1)
	assert.Equal(t, int64(77), r.patches[0].id)
	_, ok := s.Application(77)
	assert.False(t, ok, "no local record is created")
	assert.Len(t, s.Applications(), 2)
}

func TestUpdateApplication_Failure(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)
	r.patchErr = payloadErr{msg: "status is invalid"}

	status := "bogus"
	err := s.UpdateApplication(context.Background(), 3, model.ApplicationPatch{Status: &status})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUpdate))
	assert.True(t, errors.Is(err, apperror.ErrMutation))
	assert.Equal(t, "status is invalid", s.Err())
	app, _ := s.Application(3)
	assert.Equal(t, "applied", app.Status, "no local change on failure")
}

func TestUpdateJobDescription(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)

	require.NoError(t, s.UpdateJobDescription(context.Background(), 9, "Kubernetes, Go"))

	require.Len(t, r.patches, 1)
	patch := r.patches[0].patch
	require.NotNil(t, patch.JobDescription)
	assert.Nil(t, patch.Title, "only the description is sent")

	app, _ := s.Application(9)
	require.NotNil(t, app.JobDescription)
	assert.Equal(t, "Kubernetes, Go", *app.JobDescription)
}

func TestUpdateJobDescription_FallbackMessage(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)
	r.patchErr = errors.New("")

	err := s.UpdateJobDescription(context.Background(), 9, "x")

	assert.EqualError(t, err, "Failed to update job description")
	app, _ := s.Application(9)
	assert.Nil(t, app.JobDescription)
}

func TestDeleteApplication(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs}
	s := loaded(t, r)

	require.NoError(t, s.DeleteApplication(context.Background(), 3))

	assert.Equal(t, []int64{9}, ids(s.Applications()))
	assert.Equal(t, []int64{3}, r.deletes)
}

func TestDeleteApplication_FailureKeepsRecord(t *testing.T) {
	r := &fakeRemote{jobs: twoJobs, deleteErr: payloadErr{msg: "forbidden"}}
	s := loaded(t, r)

	err := s.DeleteApplication(context.Background(), 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrDelete))
	assert.Equal(t, []int64{3, 9}, ids(s.Applications()))
	assert.Equal(t, "forbidden", s.Err())
}

func TestAddApplication_IsOptimisticAndUndeduplicated(t *testing.T) {
	r := &fakeRemote{jobs: `[]`}
	s := loaded(t, r)

	app := model.Application{ID: 5, Title: "Draft"}
	s.AddApplication(app)
	s.AddApplication(app)

	assert.Equal(t, []int64{5, 5}, ids(s.Applications()))
	assert.Zero(t, len(r.patches)+len(r.deletes), "no remote call")
}

// =========================================================================
// READ SIDE
// =========================================================================

func TestApplications_ReturnsCopies(t *testing.T) {
	r := &fakeRemote{
		jobs:       `[{"id":3,"title":"Backend","jobDescription":"Go","owner":{"id":7}}]`,
		interviews: `[{"job":{"id":3},"interviewer":"Kim"}]`,
	}
	s := loaded(t, r)

	apps := s.Applications()
	apps[0].Title = "changed"
	*apps[0].JobDescription = "changed"
	apps[0].Interview.Interviewer = "changed"

	app, _ := s.Application(3)
	assert.Equal(t, "Backend", app.Title)
	assert.Equal(t, "Go", *app.JobDescription)
	assert.Equal(t, "Kim", app.Interview.Interviewer)
}
