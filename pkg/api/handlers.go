package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/rules"
	"github.com/mdhemmi/files-archive/pkg/telemetry/logging"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type runRequest struct {
	Tag json.RawMessage `json:"tag"`
}

type runResponse struct {
	*archive.SweepResult
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"durationMs"`
}

type tagRequest struct {
	Name           string `json:"name"`
	UserVisible    *bool  `json:"userVisible"`
	UserAssignable *bool  `json:"userAssignable"`
}

func (a *API) listRules(w http.ResponseWriter, r *http.Request) {
	views, err := a.rules.List(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if views == nil {
		views = []rules.RuleView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) createRule(w http.ResponseWriter, r *http.Request) {
	var rule archive.Rule
	if err := decodeBody(r, &rule); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	rule.ID = 0

	if err := a.rules.Create(r.Context(), &rule); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (a *API) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.rules.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// run sweeps one tag immediately. The tag may be sent as a number or a
// string; malformed ids reach the engine, which reports them as a
// deregistration.
func (a *API) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	tag, err := rawTag(req.Tag)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := a.rules.RunNow(r.Context(), tag)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		SweepResult: result,
		Outcome:     result.Outcome.String(),
		DurationMS:  result.Duration.Milliseconds(),
	})
}

func (a *API) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.tags.ListTags(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if tags == nil {
		tags = []*archive.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (a *API) createTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name"})
		return
	}

	tag := &archive.Tag{Name: req.Name, UserVisible: true, UserAssignable: true}
	if req.UserVisible != nil {
		tag.UserVisible = *req.UserVisible
	}
	if req.UserAssignable != nil {
		tag.UserAssignable = *req.UserAssignable
	}

	if err := a.tags.CreateTag(r.Context(), tag); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// deleteTag removes the tag and then the archive rule bound to it. A
// failing rule cleanup is only logged: the tag is gone either way and the
// rule's next sweep removes its own job.
func (a *API) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := a.tags.GetTag(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.tags.DeleteTag(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.rules.TagDeleted(r.Context(), id); err != nil {
		logging.FromContext(r.Context(), a.logger).Warn("failed to remove archive rule of deleted tag",
			"tag_id", id,
			"error", err,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) assignTag(w http.ResponseWriter, r *http.Request) {
	a.changeAssignment(w, r, a.tags.Assign)
}

func (a *API) unassignTag(w http.ResponseWriter, r *http.Request) {
	a.changeAssignment(w, r, a.tags.Unassign)
}

func (a *API) changeAssignment(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, objectID int64, objectType string, tagIDs []int64) error) {
	tagID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	objectID, ok := pathID(w, r, "objectId")
	if !ok {
		return
	}
	if err := op(r.Context(), objectID, archive.ObjectTypeFiles, []int64{tagID}); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors to status codes. Validation failures name
// the offending field in the body.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *rules.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Field})
	case errors.Is(err, archive.ErrInvalidTagID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tagid"})
	case errors.Is(err, rules.ErrRuleNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "rule not found"})
	case errors.Is(err, archive.ErrTagNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "tag not found"})
	case errors.Is(err, rules.ErrDuplicateRule):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "tagid"})
	default:
		logging.FromContext(r.Context(), a.logger).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: name})
		return 0, false
	}
	return id, true
}

// rawTag accepts {"tag": 12} and {"tag": "12"}.
func rawTag(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("tag is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid tag: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid tag: %w", err)
	}
	return n.String(), nil
}
