package admins

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admins/internal/auth"
	"github.com/odyssey-erp/odyssey-admins/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admins/internal/pre"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

// Handler manages admin account endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	users     UserFinder
	validator *validator.Validate
	gate      pre.Chain
}

// NewHandler builds Handler instance. Every route is gated on the admin
// role and the root admin group.
func NewHandler(logger *slog.Logger, service *Service, users UserFinder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		users:     users,
		validator: NewValidator(),
		gate: pre.New(logger,
			auth.EnsureUserRole(shared.RoleAdmin),
			auth.EnsureAdminGroup(shared.GroupRoot, service),
		),
	}
}

// MountRoutes registers admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/", h.gate.Then(h.list))
	r.Method(http.MethodPost, "/", h.gate.Append(decodePayload[CreateRequest](h.validator)).Then(h.create))
	r.Method(http.MethodGet, "/{id}", h.gate.Append(loadAdmin(h.service)).Then(h.show))
	r.Method(http.MethodPut, "/{id}", h.gate.Append(decodePayload[NameRequest](h.validator)).Then(h.updateName))
	r.Method(http.MethodPut, "/{id}/permissions", h.gate.Append(decodePayload[PermissionsRequest](h.validator)).Then(h.updatePermissions))
	r.Method(http.MethodPut, "/{id}/groups", h.gate.Append(decodePayload[GroupsRequest](h.validator)).Then(h.updateGroups))
	r.Method(http.MethodPut, "/{id}/user", h.gate.Append(
		decodePayload[LinkRequest](h.validator),
		loadAdmin(h.service),
		loadUserForLink(h.users),
		checkAdminFree(),
	).Then(h.link))
	r.Method(http.MethodDelete, "/{id}/user", h.gate.Append(
		loadLinkedAdmin(h.service),
		loadLinkedUser(h.users),
	).Then(h.unlink))
	r.Method(http.MethodDelete, "/{id}", h.gate.Then(h.delete))
}

func (h *Handler) list(w http.ResponseWriter, req *pre.Request) {
	params, err := h.listParams(req.HTTP)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	fields := ParseFields(params.Fields)
	page, err := h.service.List(req.HTTP.Context(), ListQuery{
		Fields: fields,
		Sort:   ParseSort(params.Sort),
		Limit:  params.Limit,
		Page:   params.Page,
	})
	if err != nil {
		h.logger.Error("list admins failed", slog.Any("error", err))
		httpx.RespondError(w, h.logger, err)
		return
	}
	if len(fields) == 0 {
		httpx.JSON(w, http.StatusOK, page)
		return
	}
	projected, err := project(page.Data, fields)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.Page[map[string]any]{Data: projected, Pages: page.Pages, Items: page.Items})
}

func (h *Handler) listParams(r *http.Request) (ListParams, error) {
	q := r.URL.Query()
	params := ListParams{
		Fields: q.Get("fields"),
		Sort:   q.Get("sort"),
		Limit:  shared.DefaultPageLimit,
		Page:   1,
	}
	bad := map[string]string{}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			bad["limit"] = "number"
		}
		params.Limit = n
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			bad["page"] = "number"
		}
		params.Page = n
	}
	if len(bad) > 0 {
		return params, &shared.ValidationError{Fields: bad}
	}
	if err := validatePayload(h.validator, &params); err != nil {
		return params, err
	}
	return params, nil
}

func (h *Handler) show(w http.ResponseWriter, req *pre.Request) {
	httpx.JSON(w, http.StatusOK, pre.Value[*Admin](req, SlotAdmin))
}

func (h *Handler) create(w http.ResponseWriter, req *pre.Request) {
	payload := pre.Value[*CreateRequest](req, SlotPayload)
	admin, err := h.service.Create(req.HTTP.Context(), payload.Name)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("admin created", slog.String("admin_id", admin.ID))
	httpx.JSON(w, http.StatusOK, admin)
}

func (h *Handler) updateName(w http.ResponseWriter, req *pre.Request) {
	payload := pre.Value[*NameRequest](req, SlotPayload)
	name := Name{First: payload.Name.First, Middle: payload.Name.Middle, Last: payload.Name.Last}
	admin, err := h.service.UpdateName(req.HTTP.Context(), chi.URLParam(req.HTTP, "id"), name)
	h.respond(w, admin, err)
}

func (h *Handler) updatePermissions(w http.ResponseWriter, req *pre.Request) {
	payload := pre.Value[*PermissionsRequest](req, SlotPayload)
	admin, err := h.service.UpdatePermissions(req.HTTP.Context(), chi.URLParam(req.HTTP, "id"), payload.Permissions)
	h.respond(w, admin, err)
}

func (h *Handler) updateGroups(w http.ResponseWriter, req *pre.Request) {
	payload := pre.Value[*GroupsRequest](req, SlotPayload)
	admin, err := h.service.UpdateGroups(req.HTTP.Context(), chi.URLParam(req.HTTP, "id"), payload.Groups)
	h.respond(w, admin, err)
}

func (h *Handler) link(w http.ResponseWriter, req *pre.Request) {
	payload := pre.Value[*LinkRequest](req, SlotPayload)
	admin, err := h.service.Link(req.HTTP.Context(), chi.URLParam(req.HTTP, "id"), payload.Username)
	h.respond(w, admin, err)
}

func (h *Handler) unlink(w http.ResponseWriter, req *pre.Request) {
	admin, err := h.service.Unlink(req.HTTP.Context(), chi.URLParam(req.HTTP, "id"))
	h.respond(w, admin, err)
}

func (h *Handler) delete(w http.ResponseWriter, req *pre.Request) {
	if err := h.service.Delete(req.HTTP.Context(), chi.URLParam(req.HTTP, "id")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Success.")
}

func (h *Handler) respond(w http.ResponseWriter, admin *Admin, err error) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, admin)
}

// project keeps the requested top-level JSON fields plus _id.
func project(items []Admin, fields []string) ([]map[string]any, error) {
	keep := map[string]bool{"_id": true}
	for _, f := range fields {
		keep[f] = true
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var full map[string]any
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(keep))
		for k, v := range full {
			if keep[k] {
				row[k] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}
