package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/sakif/jobpilot/internal/model"
)

// PAYLOAD NORMALISATION
//
// Backend versions disagree on a few payload shapes. Every shape decision
// lives in this file, with a fixed precedence, so the store and associator
// only ever see model types.
//
//   application id:            number or numeric string; records without
//                              a positive id are skipped
//   owner of an application:   owner.id  →  user.id  →  userId
//   owner of an interview:     job.id    →  job (bare number)  →  applicationId
//   single-interview lookup:   object, or array (first element), or
//                              null / [] / empty body meaning "none"

// decodeApplications turns a /jobs payload into applications.
//
// The payload must be a JSON array (null counts as empty). Elements that are
// not objects, or that carry no usable id, are skipped: a record the store
// cannot key by id cannot be merged, updated or deleted either.
func decodeApplications(raw []byte) ([]model.Application, error) {
	doc, err := parseList(raw)
	if err != nil {
		return nil, err
	}

	apps := make([]model.Application, 0, len(doc))
	for _, item := range doc {
		if !item.IsObject() {
			continue
		}
		var w applicationWire
		if err := json.Unmarshal([]byte(item.Raw), &w); err != nil {
			return nil, fmt.Errorf("tracker: decoding application: %w", err)
		}
		id, ok := idValue(item.Get("id"))
		if !ok {
			continue
		}
		app := w.Application
		app.ID = id
		if id, ok := ownerID(item); ok {
			app.Owner = &model.UserRef{ID: id}
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// applicationWire shadows the fields whose shape varies, so a string id, a
// bare-number owner or a server-side interview never fails the decode.
type applicationWire struct {
	model.Application
	ID        json.RawMessage `json:"id"`
	Owner     json.RawMessage `json:"owner"`
	Interview json.RawMessage `json:"interview"`
}

// ownerID resolves the owning user of an application record.
func ownerID(item gjson.Result) (int64, bool) {
	for _, path := range []string{"owner.id", "user.id", "userId"} {
		if id, ok := idValue(item.Get(path)); ok {
			return id, true
		}
	}
	return 0, false
}

// decodeInterviews turns a /interviews payload into snapshots keyed by
// their owning application. Records whose owner cannot be resolved are
// dropped.
func decodeInterviews(raw []byte) ([]model.Interview, error) {
	doc, err := parseList(raw)
	if err != nil {
		return nil, err
	}

	out := make([]model.Interview, 0, len(doc))
	for _, item := range doc {
		if !item.IsObject() {
			continue
		}
		appID, ok := interviewOwner(item)
		if !ok {
			continue
		}
		out = append(out, interviewFrom(item, appID))
	}
	return out, nil
}

// decodeInterviewLookup reads the /interviews/job/{id} payload. found is
// false for an empty body, null, or an empty array.
func decodeInterviewLookup(raw []byte, applicationID int64) (iv model.Interview, found bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.Interview{}, false, nil
	}
	if !gjson.ValidBytes(raw) {
		return model.Interview{}, false, fmt.Errorf("tracker: interview payload is not valid JSON")
	}

	doc := gjson.ParseBytes(raw)
	switch {
	case doc.Type == gjson.Null:
		return model.Interview{}, false, nil
	case doc.IsArray():
		items := doc.Array()
		if len(items) == 0 {
			return model.Interview{}, false, nil
		}
		doc = items[0]
		if doc.Type == gjson.Null {
			return model.Interview{}, false, nil
		}
	}
	if !doc.IsObject() {
		return model.Interview{}, false, fmt.Errorf("tracker: unexpected interview payload type %s", doc.Type)
	}

	// The path already names the application, so a record without an
	// owner field still belongs to it.
	owner, ok := interviewOwner(doc)
	if !ok {
		owner = applicationID
	}
	return interviewFrom(doc, owner), true, nil
}

// interviewOwner resolves the application an interview belongs to.
func interviewOwner(item gjson.Result) (int64, bool) {
	job := item.Get("job")
	if job.IsObject() {
		if id, ok := idValue(job.Get("id")); ok {
			return id, true
		}
	} else if id, ok := idValue(job); ok {
		return id, true
	}
	return idValue(item.Get("applicationId"))
}

func interviewFrom(item gjson.Result, applicationID int64) model.Interview {
	return model.Interview{
		ApplicationID: applicationID,
		Date:          item.Get("date").String(),
		Interviewer:   item.Get("interviewer").String(),
		PrepNotes:     item.Get("prepNotes").String(),
	}
}

// idValue accepts a positive JSON number or a numeric string.
func idValue(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number, gjson.String:
		if id := v.Int(); id > 0 {
			return id, true
		}
	}
	return 0, false
}

func parseList(raw []byte) ([]gjson.Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("tracker: payload is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.Type == gjson.Null:
		return nil, nil
	case doc.IsArray():
		return doc.Array(), nil
	default:
		return nil, fmt.Errorf("tracker: expected a JSON array, got %s", doc.Type)
	}
}
