package tracker

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/remote"
)

// withInterview returns a store whose application 3 already carries an
// interview by "Kim".
func withInterview(t *testing.T, r *fakeRemote) *Store {
	t.Helper()
	r.jobs = twoJobs
	r.interviews = `[{"job":{"id":3},"date":"2025-03-01","interviewer":"Kim"}]`
	return loaded(t, r)
}

func interviewer(t *testing.T, s *Store, id int64) string {
	t.Helper()
	app, ok := s.Application(id)
	require.True(t, ok)
	if app.Interview == nil {
		return ""
	}
	return app.Interview.Interviewer
}

// =========================================================================
// FETCH ONE
// =========================================================================

func TestFetchOne_Found(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"object", `{"job":{"id":3},"date":"2025-04-01","interviewer":"Lee"}`},
		{"array", `[{"job":{"id":3},"date":"2025-04-01","interviewer":"Lee"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRemote{}
			s := withInterview(t, r)
			r.lookup = map[int64]string{3: tt.payload}

			res := s.Interviews().FetchOne(context.Background(), 3)

			assert.Equal(t, LookupFound, res.Status)
			require.NotNil(t, res.Interview)
			assert.Equal(t, "Lee", res.Interview.Interviewer)
			assert.Equal(t, int64(3), res.Interview.ApplicationID)
			assert.Equal(t, "Lee", interviewer(t, s, 3), "found overwrites unconditionally")
		})
	}
}

func TestFetchOne_NotFoundLeavesSlot(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     error
	}{
		{"empty array", `[]`, nil},
		{"null", `null`, nil},
		{"404", "", &remote.StatusError{Method: http.MethodGet, Path: "/interviews/job/3", StatusCode: http.StatusNotFound}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRemote{}
			s := withInterview(t, r)
			r.lookup = map[int64]string{3: tt.payload}
			r.lookupErr = tt.err

			res := s.Interviews().FetchOne(context.Background(), 3)

			assert.Equal(t, LookupNotFound, res.Status)
			assert.Nil(t, res.Interview)
			assert.NoError(t, res.Err)
			assert.Equal(t, "Kim", interviewer(t, s, 3), "not found is not a clear")
			assert.Empty(t, s.Err())
		})
	}
}

func TestFetchOne_FailureIsDistinctFromNotFound(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)
	r.lookupErr = payloadErr{msg: "upstream timeout"}

	res := s.Interviews().FetchOne(context.Background(), 3)

	assert.Equal(t, LookupFailed, res.Status)
	assert.Nil(t, res.Interview)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, apperror.ErrFetch))
	assert.Equal(t, "upstream timeout", s.Err())
	assert.Equal(t, "Kim", interviewer(t, s, 3))
}

func TestFetchOne_FallbackMessage(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)
	r.lookupErr = errors.New("")

	res := s.Interviews().FetchOne(context.Background(), 3)

	assert.Equal(t, LookupFailed, res.Status)
	assert.Equal(t, "Failed to fetch interview", s.Err())
}

func TestFetchOne_ApplicationNotLoaded(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)
	r.lookup = map[int64]string{50: `{"job":{"id":50},"interviewer":"Ng"}`}

	res := s.Interviews().FetchOne(context.Background(), 50)

	assert.Equal(t, LookupFound, res.Status)
	_, ok := s.Application(50)
	assert.False(t, ok, "a lookup never creates an application")
}

func TestFetchOne_404ForUnknownApplicationFails(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)
	r.lookupErr = &remote.StatusError{Method: http.MethodGet, Path: "/interviews/job/50", StatusCode: http.StatusNotFound}

	res := s.Interviews().FetchOne(context.Background(), 50)

	assert.Equal(t, LookupFailed, res.Status)
	assert.Nil(t, res.Interview)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, apperror.ErrFetch))
	assert.Equal(t, "Application not found", s.Err())
	assert.Equal(t, "Kim", interviewer(t, s, 3), "other slots are untouched")
}

func TestLookupStatus_String(t *testing.T) {
	assert.Equal(t, "found", LookupFound.String())
	assert.Equal(t, "not found", LookupNotFound.String())
	assert.Equal(t, "failed", LookupFailed.String())
}

// =========================================================================
// SAVE
// =========================================================================

func TestSave(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)

	err := s.Interviews().Save(context.Background(), 9, model.Interview{
		Date: "2025-05-01", Interviewer: "Park", PrepNotes: "system design",
	})
	require.NoError(t, err)

	require.Len(t, r.created, 1)
	assert.Equal(t, model.InterviewPayload{
		Job:         model.JobRef{ID: 9},
		Date:        "2025-05-01",
		Interviewer: "Park",
		PrepNotes:   "system design",
	}, r.created[0])

	app, _ := s.Application(9)
	require.NotNil(t, app.Interview)
	assert.Equal(t, model.Interview{
		ApplicationID: 9,
		Date:          "2025-05-01",
		Interviewer:   "Park",
		PrepNotes:     "system design",
	}, *app.Interview, "the submitted values are kept, not the server echo")
}

func TestSave_ReplacesExisting(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)

	require.NoError(t, s.Interviews().Save(context.Background(), 3, model.Interview{Interviewer: "Lee"}))

	app, _ := s.Application(3)
	assert.Equal(t, "Lee", app.Interview.Interviewer)
	assert.Empty(t, app.Interview.Date, "replacement is wholesale")
}

func TestSave_Failure(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)
	r.createErr = payloadErr{msg: "date is required"}

	err := s.Interviews().Save(context.Background(), 3, model.Interview{Interviewer: "Lee"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrSave))
	assert.True(t, errors.Is(err, apperror.ErrMutation))
	assert.Equal(t, "date is required", s.Err())
	assert.Equal(t, "Kim", interviewer(t, s, 3), "slot untouched on failure")
}

func TestSave_FallbackMessage(t *testing.T) {
	r := &fakeRemote{}
	s := withInterview(t, r)
	r.createErr = errors.New("")

	err := s.Interviews().Save(context.Background(), 3, model.Interview{})

	assert.EqualError(t, err, "Failed to save interview")
}
