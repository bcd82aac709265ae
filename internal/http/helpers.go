package http

import (
	"strings"
	"time"

	"fintrack/internal/core"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// templateRequest is the body of POST /api/templates and PUT /api/templates/{id}.
type templateRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	AccountID     int64  `json:"account_id"`
	Amount        string `json:"amount"`
	AmountCents   *int64 `json:"amount_cents"`
	Currency      string `json:"currency"`
	CategoryID    int64  `json:"category_id"`
	SubcategoryID int64  `json:"subcategory_id"`
	Pattern       string `json:"recurrence_pattern"`
	Interval      *int   `json:"recurrence_interval"`
	DayOfMonth    int    `json:"day_of_month"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	IsActive      *bool  `json:"is_active"`
}

// toTemplate converts the request. The interval defaults to 1 and is_active to true.
func (req templateRequest) toTemplate() (core.RecurringTemplate, error) {
	amount, err := bodyAmount(req.Amount, req.AmountCents)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	start, err := bodyDate("start_date", req.StartDate)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	end, err := bodyDate("end_date", req.EndDate)
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	t := core.RecurringTemplate{
		Name:          sanitizeInput(req.Name),
		Description:   sanitizeInput(req.Description),
		AccountID:     req.AccountID,
		Amount:        amount,
		Currency:      strings.ToUpper(sanitizeInput(req.Currency)),
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Pattern:       core.RecurrencePattern(strings.ToLower(sanitizeInput(req.Pattern))),
		Interval:      1,
		DayOfMonth:    req.DayOfMonth,
		StartDate:     start,
		EndDate:       end,
		IsActive:      true,
	}
	if req.Interval != nil {
		t.Interval = *req.Interval
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	return t, nil
}

type templateResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	AccountID     int64     `json:"account_id"`
	Amount        string    `json:"amount"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	CategoryID    int64     `json:"category_id"`
	SubcategoryID int64     `json:"subcategory_id,omitempty"`
	Pattern       string    `json:"recurrence_pattern"`
	Interval      int       `json:"recurrence_interval"`
	DayOfMonth    int       `json:"day_of_month,omitempty"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date,omitempty"`
	IsActive      bool      `json:"is_active"`
	LastGenerated string    `json:"last_generated,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newTemplateResponse(t core.RecurringTemplate) templateResponse {
	return templateResponse{
		ID:            t.ID,
		Name:          t.Name,
		Description:   t.Description,
		AccountID:     t.AccountID,
		Amount:        t.Amount.Decimal(),
		AmountCents:   t.Amount.Cents,
		Currency:      t.Currency,
		CategoryID:    t.CategoryID,
		SubcategoryID: t.SubcategoryID,
		Pattern:       string(t.Pattern),
		Interval:      t.Interval,
		DayOfMonth:    t.DayOfMonth,
		StartDate:     t.StartDate.String(),
		EndDate:       t.EndDate.String(),
		IsActive:      t.IsActive,
		LastGenerated: t.LastGenerated.String(),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

type pendingResponse struct {
	ID             int64      `json:"id"`
	TemplateID     int64      `json:"template_id,omitempty"`
	AccountID      int64      `json:"account_id"`
	Amount         string     `json:"amount"`
	AmountCents    int64      `json:"amount_cents"`
	Currency       string     `json:"currency"`
	CategoryID     int64      `json:"category_id"`
	SubcategoryID  int64      `json:"subcategory_id,omitempty"`
	Description    string     `json:"description"`
	OccurrenceDate string     `json:"occurrence_date"`
	Status         string     `json:"status"`
	CommittedID    int64      `json:"committed_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func newPendingResponse(p core.PendingTransaction) pendingResponse {
	resp := pendingResponse{
		ID:             p.ID,
		TemplateID:     p.TemplateID,
		AccountID:      p.AccountID,
		Amount:         p.Amount.Decimal(),
		AmountCents:    p.Amount.Cents,
		Currency:       p.Currency,
		CategoryID:     p.CategoryID,
		SubcategoryID:  p.SubcategoryID,
		Description:    p.Description,
		OccurrenceDate: p.OccurrenceDate.String(),
		Status:         string(p.Status),
		CommittedID:    p.CommittedID,
		CreatedAt:      p.CreatedAt,
	}
	if !p.ResolvedAt.IsZero() {
		at := p.ResolvedAt
		resp.ResolvedAt = &at
	}
	return resp
}

type committedResponse struct {
	ID            int64     `json:"id"`
	PendingID     int64     `json:"pending_id"`
	TemplateID    int64     `json:"template_id,omitempty"`
	AccountID     int64     `json:"account_id"`
	Amount        string    `json:"amount"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	CategoryID    int64     `json:"category_id"`
	SubcategoryID int64     `json:"subcategory_id,omitempty"`
	Description   string    `json:"description"`
	Date          string    `json:"date"`
	CommittedAt   time.Time `json:"committed_at"`
}

func newCommittedResponse(c core.CommittedTransaction) committedResponse {
	return committedResponse{
		ID:            c.ID,
		PendingID:     c.PendingID,
		TemplateID:    c.TemplateID,
		AccountID:     c.AccountID,
		Amount:        c.Amount.Decimal(),
		AmountCents:   c.Amount.Cents,
		Currency:      c.Currency,
		CategoryID:    c.CategoryID,
		SubcategoryID: c.SubcategoryID,
		Description:   c.Description,
		Date:          c.Date.String(),
		CommittedAt:   c.CommittedAt,
	}
}

type categoryTotal struct {
	CategoryID  int64  `json:"category_id"`
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

type summaryResponse struct {
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	Count      int               `json:"count"`
	Totals     map[string]string `json:"totals"`
	ByCategory []categoryTotal   `json:"by_category"`
}

func newSummaryResponse(s core.LedgerSummary) summaryResponse {
	resp := summaryResponse{
		From:       s.From.String(),
		To:         s.To.String(),
		Count:      s.Count,
		Totals:     make(map[string]string, len(s.Totals)),
		ByCategory: make([]categoryTotal, 0, len(s.ByCategory)),
	}
	for cur, m := range s.Totals {
		resp.Totals[cur] = m.Decimal()
	}
	for _, c := range s.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryTotal{
			CategoryID:  c.CategoryID,
			Currency:    c.Currency,
			Amount:      c.Amount.Decimal(),
			AmountCents: c.Amount.Cents,
		})
	}
	return resp
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
