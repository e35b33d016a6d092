package letters

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/audit"
	"github.com/JaimeStill/missive/pkg/auth"
	"github.com/JaimeStill/missive/pkg/handlers"
	"github.com/JaimeStill/missive/pkg/pagination"
	"github.com/JaimeStill/missive/pkg/routes"
)

// DefaultMaxBodySize bounds JSON request bodies when no limit is configured.
const DefaultMaxBodySize = 1 << 20

// Handler provides HTTP endpoints for letter operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	maxBody    int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, pagination
// config and request body limit.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "letters"),
		pagination: pagination,
		maxBody:    maxBody,
	}
}

// Routes returns the route group for authenticated letter endpoints. The
// acting user is read from the request context set by auth.Middleware.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/letters",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/approve", Handler: h.Approve},
			{Method: "POST", Pattern: "/{id}/reject", Handler: h.Reject},
			{Method: "POST", Pattern: "/{id}/reassign", Handler: h.Reassign},
			{Method: "POST", Pattern: "/{id}/final-approve", Handler: h.FinalApprove},
			{Method: "POST", Pattern: "/{id}/final-reject", Handler: h.FinalReject},
			{Method: "POST", Pattern: "/{id}/resubmit", Handler: h.Resubmit},
			{Method: "POST", Pattern: "/{id}/comments", Handler: h.Comment},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "GET", Pattern: "/{id}/assignments", Handler: h.Assignments},
			{Method: "GET", Pattern: "/{id}/actions", Handler: h.Actions},
		},
	}
}

// PublicRoutes returns the unauthenticated route group serving final
// artifacts at the letters' public links.
func (h *Handler) PublicRoutes() routes.Group {
	return routes.Group{
		Prefix: "/public/letters",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}", Handler: h.Download},
		},
	}
}

// List returns a paginated list of the caller's letters with optional query
// parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())
	filters.Viewer = &actor

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching letters.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Filters.Viewer = &actor

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single letter by its UUID path parameter. Only the
// submitter and assignees may read it.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	l, err := h.sys.Viewable(r.Context(), id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, l)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var cmd SubmitCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.SubmitterID = actor

	l, err := h.sys.Submit(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, l)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, func(actor, id uuid.UUID, cmd *ApproveCommand) (*Letter, error) {
		cmd.ActorID = actor
		return h.sys.ApproveStep(r.Context(), id, *cmd)
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, func(actor, id uuid.UUID, cmd *RejectCommand) (*Letter, error) {
		cmd.ActorID = actor
		return h.sys.RejectStep(r.Context(), id, *cmd)
	})
}

func (h *Handler) Reassign(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, func(actor, id uuid.UUID, cmd *ReassignCommand) (*Letter, error) {
		cmd.ActorID = actor
		return h.sys.ReassignStep(r.Context(), id, *cmd)
	})
}

func (h *Handler) FinalApprove(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, func(actor, id uuid.UUID, cmd *FinalApproveCommand) (*Letter, error) {
		cmd.ActorID = actor
		return h.sys.FinalApprove(r.Context(), id, *cmd)
	})
}

func (h *Handler) FinalReject(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, func(actor, id uuid.UUID, cmd *RejectCommand) (*Letter, error) {
		cmd.ActorID = actor
		return h.sys.FinalReject(r.Context(), id, *cmd)
	})
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	act(h, w, r, func(actor, id uuid.UUID, cmd *ResubmitCommand) (*Letter, error) {
		cmd.SubmitterID = actor
		return h.sys.Resubmit(r.Context(), id, *cmd)
	})
}

func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd CommentCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.ActorID = actor

	entry, err := h.sys.Comment(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.sys.Delete(r.Context(), id, actor); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Assignments returns the letter's reviewer chain in sequence order.
func (h *Handler) Assignments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.viewable(w, r)
	if !ok {
		return
	}

	as, err := h.sys.Assignments(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, as)
}

// Actions returns the letter's audit log. The order query parameter selects
// asc or desc; desc is the default.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.viewable(w, r)
	if !ok {
		return
	}

	entries, err := h.sys.Actions(r.Context(), id, audit.ParseOrder(r.URL.Query().Get("order")))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entries)
}

// Download streams the final PDF of an approved letter.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	data, err := h.sys.Artifact(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", id.String()+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// act runs a workflow transition that takes a JSON command and returns the
// updated letter.
func act[C any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	fn func(actor, id uuid.UUID, cmd *C) (*Letter, error),
) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd C
	if !h.decode(w, r, &cmd) {
		return
	}

	l, err := fn(actor, id, &cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, l)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return uuid.Nil, false
	}
	return id, true
}

// viewable resolves the path id and checks that the caller may read the letter.
func (h *Handler) viewable(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return uuid.Nil, false
	}

	if _, err := h.sys.Viewable(r.Context(), id, actor); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: invalid letter id", ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

// decode reads a JSON body into v. An empty body leaves v at its zero value.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
			return false
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrValidation, err))
		return false
	}
	return true
}
