package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"trackify/internal/domain/recurring"
)

type RecurringHandler struct {
	service *recurring.Service
	engine  *recurring.Engine
}

func NewRecurringHandler(service *recurring.Service, engine *recurring.Engine) *RecurringHandler {
	return &RecurringHandler{service: service, engine: engine}
}

// --- Request/Response types ---

type CreateRecurringRequest struct {
	CategoryID  string          `json:"categoryId"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Frequency   string          `json:"frequency"`
	StartDate   string          `json:"startDate"`
	EndDate     *string         `json:"endDate,omitempty"`
}

// UpdateRecurringRequest carries a partial edit. Absent fields are unchanged;
// clearEndDate removes the end date.
type UpdateRecurringRequest struct {
	CategoryID   *string          `json:"categoryId,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Frequency    *string          `json:"frequency,omitempty"`
	StartDate    *string          `json:"startDate,omitempty"`
	EndDate      *string          `json:"endDate,omitempty"`
	ClearEndDate bool             `json:"clearEndDate,omitempty"`
}

type RecurringResponse struct {
	ID           string  `json:"id"`
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName,omitempty"`
	Type         string  `json:"type"`
	Amount       string  `json:"amount"`
	Description  string  `json:"description"`
	Frequency    string  `json:"frequency"`
	StartDate    string  `json:"startDate"`
	EndDate      *string `json:"endDate"`
	NextDueDate  string  `json:"nextDueDate"`
	IsActive     bool    `json:"isActive"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

type ProcessErrorResponse struct {
	TemplateID string `json:"templateId"`
	Error      string `json:"error"`
}

type ProcessResponse struct {
	Status    string                 `json:"status"`
	AsOf      string                 `json:"asOf"`
	Due       int                    `json:"due"`
	Processed int                    `json:"processed"`
	Errors    []ProcessErrorResponse `json:"errors"`
}

type TotalsResponse struct {
	MonthlyIncome  string `json:"monthlyIncome"`
	MonthlyExpense string `json:"monthlyExpense"`
	MonthlyNet     string `json:"monthlyNet"`
}

type StatsResponse struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Inactive int            `json:"inactive"`
	Totals   TotalsResponse `json:"totals"`
}

const (
	defaultUpcomingDays = 7
	maxUpcomingDays     = 366
)

// --- Handlers ---

// HandleTemplates handles GET (list) and POST (create) on /api/recurring/
func (h *RecurringHandler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r, userID)
	case http.MethodPost:
		h.handleCreate(w, r, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RecurringHandler) handleList(w http.ResponseWriter, r *http.Request, userID int64) {
	filters, err := parseFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	templates, err := h.service.List(r.Context(), userID, filters)
	if err != nil {
		writeRecurringError(w, err, "list recurring templates", userID)
		return
	}

	writeJSON(w, http.StatusOK, toRecurringResponses(templates))
}

func (h *RecurringHandler) handleCreate(w http.ResponseWriter, r *http.Request, userID int64) {
	var req CreateRecurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	startDate, err := recurring.ParseDate(req.StartDate)
	if err != nil {
		http.Error(w, "Invalid startDate format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		http.Error(w, "Invalid endDate format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	template, err := h.service.Create(r.Context(), userID, recurring.CreateParams{
		CategoryID:  req.CategoryID,
		Type:        recurring.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Frequency:   recurring.Frequency(req.Frequency),
		StartDate:   startDate,
		EndDate:     endDate,
	})
	if err != nil {
		writeRecurringError(w, err, "create recurring template", userID)
		return
	}

	writeJSON(w, http.StatusCreated, toRecurringResponse(template))
}

// HandleTemplateByID handles GET/PUT/PATCH/DELETE on /api/recurring/{id}
func (h *RecurringHandler) HandleTemplateByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Template ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		template, err := h.service.Get(r.Context(), userID, id)
		if err != nil {
			writeRecurringError(w, err, "get recurring template", userID)
			return
		}
		writeJSON(w, http.StatusOK, toRecurringResponse(template))
	case http.MethodPut, http.MethodPatch:
		h.handleUpdate(w, r, userID, id)
	case http.MethodDelete:
		if err := h.service.Delete(r.Context(), userID, id); err != nil {
			writeRecurringError(w, err, "delete recurring template", userID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RecurringHandler) handleUpdate(w http.ResponseWriter, r *http.Request, userID int64, id string) {
	var req UpdateRecurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := recurring.UpdateParams{
		CategoryID:   req.CategoryID,
		Amount:       req.Amount,
		Description:  req.Description,
		ClearEndDate: req.ClearEndDate,
	}
	if req.Type != nil {
		t := recurring.TransactionType(*req.Type)
		params.Type = &t
	}
	if req.Frequency != nil {
		f := recurring.Frequency(*req.Frequency)
		params.Frequency = &f
	}

	var err error
	if params.StartDate, err = parseOptionalDate(req.StartDate); err != nil {
		http.Error(w, "Invalid startDate format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if params.EndDate, err = parseOptionalDate(req.EndDate); err != nil {
		http.Error(w, "Invalid endDate format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	template, err := h.service.Update(r.Context(), userID, id, params)
	if err != nil {
		writeRecurringError(w, err, "update recurring template", userID)
		return
	}

	writeJSON(w, http.StatusOK, toRecurringResponse(template))
}

// HandleToggle handles POST /api/recurring/{id}/toggle
func (h *RecurringHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	template, err := h.service.Toggle(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeRecurringError(w, err, "toggle recurring template", userID)
		return
	}

	writeJSON(w, http.StatusOK, toRecurringResponse(template))
}

// HandleDue handles GET /api/recurring/due?as_of=YYYY-MM-DD
func (h *RecurringHandler) HandleDue(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	asOf, err := h.parseAsOf(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	templates, err := h.engine.GetDueTemplates(r.Context(), userID, asOf)
	if err != nil {
		writeRecurringError(w, err, "get due templates", userID)
		return
	}

	writeJSON(w, http.StatusOK, toRecurringResponses(templates))
}

// HandleProcess handles POST /api/recurring/process?as_of=YYYY-MM-DD.
// as_of defaults to today and may not be in the future.
func (h *RecurringHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	asOf, err := h.parseAsOf(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if asOf.After(h.engine.Today()) {
		http.Error(w, "as_of must not be in the future", http.StatusBadRequest)
		return
	}

	result, err := h.engine.ProcessDue(r.Context(), userID, asOf)
	if err != nil {
		writeRecurringError(w, err, "process due templates", userID)
		return
	}

	resp := ProcessResponse{
		Status:    string(result.Status()),
		AsOf:      recurring.FormatDate(asOf),
		Due:       result.Due,
		Processed: result.Processed,
		Errors:    make([]ProcessErrorResponse, 0, len(result.Errors)),
	}
	for _, itemErr := range result.Errors {
		resp.Errors = append(resp.Errors, ProcessErrorResponse{
			TemplateID: itemErr.TemplateID,
			Error:      itemErr.Err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpcoming handles GET /api/recurring/upcoming?days=N
func (h *RecurringHandler) HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	days := defaultUpcomingDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 0 || parsed > maxUpcomingDays {
			http.Error(w, "days must be an integer between 0 and 366", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	templates, err := h.engine.GetUpcoming(r.Context(), userID, days)
	if err != nil {
		writeRecurringError(w, err, "get upcoming templates", userID)
		return
	}

	writeJSON(w, http.StatusOK, toRecurringResponses(templates))
}

// HandleStats handles GET /api/recurring/stats
func (h *RecurringHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Statistics(r.Context(), userID)
	if err != nil {
		writeRecurringError(w, err, "get recurring statistics", userID)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Total:    stats.Total,
		Active:   stats.Active,
		Inactive: stats.Inactive,
		Totals:   toTotalsResponse(stats.Totals),
	})
}

// HandleEstimate handles GET /api/recurring/estimate
func (h *RecurringHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	totals, err := h.engine.EstimateMonthlyTotals(r.Context(), userID)
	if err != nil {
		writeRecurringError(w, err, "estimate monthly totals", userID)
		return
	}

	writeJSON(w, http.StatusOK, toTotalsResponse(totals))
}

// --- Helpers ---

func (h *RecurringHandler) parseAsOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.engine.Today(), nil
	}
	asOf, err := recurring.ParseDate(raw)
	if err != nil {
		return time.Time{}, errors.New("invalid as_of format (use YYYY-MM-DD)")
	}
	return asOf, nil
}

func parseFilters(r *http.Request) (recurring.Filters, error) {
	var filters recurring.Filters
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		t := recurring.TransactionType(v)
		if !t.IsValid() {
			return filters, errors.New("type must be 'income' or 'expense'")
		}
		filters.Type = &t
	}
	if v := q.Get("categoryId"); v != "" {
		filters.CategoryID = &v
	}
	if v := q.Get("frequency"); v != "" {
		f, err := recurring.ParseFrequency(v)
		if err != nil {
			return filters, errors.New("frequency must be daily, weekly, monthly or yearly")
		}
		filters.Frequency = &f
	}
	if v := q.Get("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return filters, errors.New("isActive must be true or false")
		}
		filters.IsActive = &active
	}

	return filters, nil
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := recurring.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func writeRecurringError(w http.ResponseWriter, err error, action string, userID int64) {
	switch {
	case errors.Is(err, recurring.ErrTemplateNotFound):
		http.Error(w, "Recurring template not found", http.StatusNotFound)
	case errors.Is(err, recurring.ErrInvalidInput), errors.Is(err, recurring.ErrInvalidFrequency):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Error: failed to %s for user %d: %v", action, userID, err)
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

func toRecurringResponse(t *recurring.Template) RecurringResponse {
	var endDate *string
	if t.EndDate != nil {
		formatted := recurring.FormatDate(*t.EndDate)
		endDate = &formatted
	}

	return RecurringResponse{
		ID:           t.ID,
		CategoryID:   t.CategoryID,
		CategoryName: t.CategoryName,
		Type:         string(t.Type),
		Amount:       t.Amount.StringFixed(2),
		Description:  t.Description,
		Frequency:    string(t.Frequency),
		StartDate:    recurring.FormatDate(t.StartDate),
		EndDate:      endDate,
		NextDueDate:  recurring.FormatDate(t.NextDueDate),
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
	}
}

func toRecurringResponses(templates []*recurring.Template) []RecurringResponse {
	items := make([]RecurringResponse, 0, len(templates))
	for _, t := range templates {
		items = append(items, toRecurringResponse(t))
	}
	return items
}

func toTotalsResponse(m recurring.MonthlyTotals) TotalsResponse {
	return TotalsResponse{
		MonthlyIncome:  m.Income.StringFixed(2),
		MonthlyExpense: m.Expense.StringFixed(2),
		MonthlyNet:     m.Net().StringFixed(2),
	}
}
