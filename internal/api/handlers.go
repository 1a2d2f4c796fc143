package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/headstone/internal/apperr"
	"github.com/starford/headstone/internal/backend"
	"github.com/starford/headstone/internal/dashboard"
	"github.com/starford/headstone/internal/geo"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/roles"
	"github.com/starford/headstone/internal/route"
	"github.com/starford/headstone/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	svc *dashboard.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *dashboard.Service) *Handler {
	return &Handler{svc: svc}
}

// accountKind reads the {kind} URL parameter. Unlike the store, the API does
// not coerce unknown kinds.
func accountKind(r *http.Request) (models.AccountKind, error) {
	kind := models.AccountKind(strings.ToLower(chi.URLParam(r, "kind")))
	if !kind.Valid() {
		return "", apperr.ErrInvalidKind
	}
	return kind, nil
}

// GetRoute handles GET /api/route.
//
//	@Summary	Current resolved route
//	@Tags		routing
//	@Produce	json
//	@Success	200	{object}	route.State
//	@Router		/route [get]
func (h *Handler) GetRoute(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Route())
}

// Navigate handles POST /api/navigate. The route settles asynchronously;
// watch /api/events or poll /api/route for the outcome.
//
//	@Summary	Navigate to a path
//	@Tags		routing
//	@Accept		json
//	@Param		body	body	NavigateRequest	true	"Target path"
//	@Success	202		{object}	NavigateRequest
//	@Failure	400		{object}	errResponse
//	@Router		/navigate [post]
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	path := route.Normalize(strings.TrimSpace(req.Path))
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	h.svc.Navigate(path)
	writeJSON(w, http.StatusAccepted, NavigateRequest{Path: path})
}

// SetLocation handles POST /api/location.
func (h *Handler) SetLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.svc.SetLocation(req.Fragment)
	writeJSON(w, http.StatusAccepted, req)
}

// ListNav handles GET /api/nav.
func (h *Handler) ListNav(w http.ResponseWriter, _ *http.Request) {
	out := make([]models.RoleConfig, 0, len(roles.All()))
	for _, role := range roles.All() {
		cfg, _ := h.svc.Nav(role)
		out = append(out, cfg)
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": out})
}

// GetNav handles GET /api/nav/{role}.
//
//	@Summary	Navigation for a role
//	@Tags		routing
//	@Produce	json
//	@Param		role	path		string	true	"Role"	Enums(admin, employee, customer)
//	@Success	200		{object}	models.RoleConfig
//	@Failure	404		{object}	errResponse
//	@Router		/nav/{role} [get]
func (h *Handler) GetNav(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.svc.Nav(models.Role(chi.URLParam(r, "role")))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown role"))
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// GetPage handles GET /api/page.
func (h *Handler) GetPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Page())
}

// Search handles GET /api/search.
//
//	@Summary	Rank dashboard shortcuts for a query
//	@Tags		search
//	@Produce	json
//	@Param		q		query		string	false	"Query"
//	@Param		role	query		string	false	"Role, defaults to the current route"
//	@Success	200		{object}	SearchResponse
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results := h.svc.Search(models.Role(q.Get("role")), q.Get("q"))
	if results == nil {
		results = []models.SearchEntry{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListAccounts handles GET /api/accounts/{kind}.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	kind, err := accountKind(r)
	if err != nil {
		writeError(w, "list accounts", err)
		return
	}
	accounts := h.svc.Store().Accounts(kind)
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, AccountListResponse{Accounts: accounts})
}

// CreateAccount handles POST /api/accounts/{kind}.
//
//	@Summary	Create or update an account with a temporary password
//	@Tags		accounts
//	@Accept		json
//	@Produce	json
//	@Param		kind	path		string					true	"Account kind"	Enums(customer, employee)
//	@Param		body	body		session.AccountInput	true	"Account"
//	@Success	201		{object}	CredentialResponse
//	@Failure	400		{object}	errResponse
//	@Router		/accounts/{kind} [post]
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	kind, err := accountKind(r)
	if err != nil {
		writeError(w, "create account", err)
		return
	}
	var in session.AccountInput
	if !decodeJSON(w, r, &in) {
		return
	}
	cred, err := h.svc.CreateUser(kind, in)
	if err != nil {
		writeError(w, "create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, cred)
}

// ResetPassword handles POST /api/accounts/{kind}/reset.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	kind, err := accountKind(r)
	if err != nil {
		writeError(w, "reset password", err)
		return
	}
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(kind, req.Email, req.Password); err != nil {
		writeError(w, "reset password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /api/sessions/{kind}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	kind, err := accountKind(r)
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Kind: kind, Email: h.svc.Store().Session(kind)})
}

// Login handles POST /api/sessions/{kind}.
//
//	@Summary	Check credentials and open a session
//	@Tags		accounts
//	@Accept		json
//	@Produce	json
//	@Param		kind	path		string				true	"Account kind"	Enums(customer, employee)
//	@Param		body	body		CredentialsRequest	true	"Credentials"
//	@Success	200		{object}	session.LoginResult
//	@Failure	401		{object}	errResponse
//	@Router		/sessions/{kind} [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	kind, err := accountKind(r)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(kind, req.Email, req.Password)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Logout handles DELETE /api/sessions/{kind}.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	kind, err := accountKind(r)
	if err != nil {
		writeError(w, "logout", err)
		return
	}
	h.svc.Logout(kind)
	w.WriteHeader(http.StatusNoContent)
}

// CancelReset handles DELETE /api/accounts/{kind}/reset.
func (h *Handler) CancelReset(w http.ResponseWriter, r *http.Request) {
	kind, err := accountKind(r)
	if err != nil {
		writeError(w, "cancel reset", err)
		return
	}
	if kind == models.KindCustomer {
		h.svc.CancelReset()
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotices handles GET /api/notices.
func (h *Handler) ListNotices(w http.ResponseWriter, _ *http.Request) {
	notices := h.svc.Store().Notices()
	if notices == nil {
		notices = []models.TempPasswordNotice{}
	}
	writeJSON(w, http.StatusOK, NoticeListResponse{Notices: notices})
}

// SignIn handles POST /api/signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SignIn(req.Role, req.Email, req.Password)
	if err != nil {
		writeError(w, "sign in", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SetTestingView handles PUT /api/testing-view.
func (h *Handler) SetTestingView(w http.ResponseWriter, r *http.Request) {
	var req TestingViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view := strings.ToLower(strings.TrimSpace(req.View))
	if err := h.svc.SetTestingView(view); err != nil {
		writeError(w, "set testing view", err)
		return
	}
	writeJSON(w, http.StatusAccepted, TestingViewRequest{View: view})
}

// Onboard handles POST /api/onboarding.
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	var in dashboard.OnboardingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	cred, err := h.svc.Onboard(in)
	if err != nil {
		writeError(w, "onboard", err)
		return
	}
	writeJSON(w, http.StatusCreated, cred)
}

// Directory handles GET /api/directory.
func (h *Handler) Directory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"customers": h.svc.Directory()})
}

// SelectedCustomer handles GET /api/directory/selected.
func (h *Handler) SelectedCustomer(w http.ResponseWriter, _ *http.Request) {
	row, ok := h.svc.SelectedCustomer()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no customers"))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// SelectCustomer handles PUT /api/directory/selected.
func (h *Handler) SelectCustomer(w http.ResponseWriter, r *http.Request) {
	var req SelectCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("email is required"))
		return
	}
	h.svc.SelectCustomer(req.Email)
	w.WriteHeader(http.StatusAccepted)
}

// GetCalendarDate handles GET /api/calendar-date.
func (h *Handler) GetCalendarDate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CalendarDateResponse{Date: h.svc.Store().CalendarDate()})
}

// SetCalendarDate handles PUT /api/calendar-date.
func (h *Handler) SetCalendarDate(w http.ResponseWriter, r *http.Request) {
	var req CalendarDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Store().SetCalendarDate(req.Date); err != nil {
		writeError(w, "set calendar date", err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarDateResponse{Date: h.svc.Store().CalendarDate()})
}

// CreateService handles POST /api/scheduling/services.
//
//	@Summary	Create a draft service job
//	@Tags		scheduling
//	@Accept		json
//	@Produce	json
//	@Param		body	body		backend.CreateServiceRequest	true	"Job"
//	@Success	201		{object}	backend.SchedulingService
//	@Failure	400		{object}	errResponse
//	@Failure	502		{object}	errResponse
//	@Failure	503		{object}	errResponse
//	@Router		/scheduling/services [post]
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc, err := h.svc.CreateService(r.Context(), req)
	if err != nil {
		writeError(w, "create service", err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// AssignService handles POST /api/scheduling/services/{id}/assign. The body
// is the raw scheduling form; the job id comes from the path.
func (h *Handler) AssignService(w http.ResponseWriter, r *http.Request) {
	var form backend.AssignForm
	if !decodeJSON(w, r, &form) {
		return
	}
	form.ServiceID = chi.URLParam(r, "id")
	svc, err := h.svc.AssignService(r.Context(), form)
	if err != nil {
		writeError(w, "assign service", err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// SendEmail handles POST /api/emails.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req backend.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SendEmail(r.Context(), req)
	if err != nil {
		writeError(w, "send email", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ParseCoordinates handles GET /api/coordinates?lat=&lng=.
func (h *Handler) ParseCoordinates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := geo.ParsePoint(q.Get("lat"), q.Get("lng"))
	if err != nil {
		writeError(w, "parse coordinates", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
