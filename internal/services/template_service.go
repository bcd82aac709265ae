package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// TemplateService manages recurring templates, resolving accounts and categories at the boundary.
type TemplateService struct {
	store      ports.TemplateStore
	accounts   ports.AccountLookup
	categories ports.CategoryLookup
	logger     *log.Logger
}

func NewTemplateService(store ports.TemplateStore, accounts ports.AccountLookup, categories ports.CategoryLookup, logger *log.Logger) *TemplateService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TemplateService{
		store:      store,
		accounts:   accounts,
		categories: categories,
		logger:     logger.WithComponent(log.ComponentTemplate),
	}
}

// Create validates t, resolves its references and stores it.
// An empty currency is filled from the account.
func (s *TemplateService) Create(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	t.ID = 0
	t.LastGenerated = core.Date{}
	if err := s.prepare(ctx, &t); err != nil {
		return core.RecurringTemplate{}, err
	}
	id, err := s.store.CreateTemplate(ctx, t)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	s.logger.InfoContext(ctx, "Recurring template created",
		log.FieldTemplateID, id,
		"pattern", t.Pattern,
		"interval", t.Interval)
	return s.store.GetTemplate(ctx, id)
}

// Update replaces the editable fields of an existing template. last_generated is kept and
// existing pending transactions are left untouched.
func (s *TemplateService) Update(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	existing, err := s.store.GetTemplate(ctx, t.ID)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	t.LastGenerated = existing.LastGenerated
	t.CreatedAt = existing.CreatedAt
	if err := s.prepare(ctx, &t); err != nil {
		return core.RecurringTemplate{}, err
	}
	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return core.RecurringTemplate{}, err
	}
	s.logger.InfoContext(ctx, "Recurring template updated", log.FieldTemplateID, t.ID)
	return s.store.GetTemplate(ctx, t.ID)
}

func (s *TemplateService) Get(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *TemplateService) List(ctx context.Context) ([]core.RecurringTemplate, error) {
	return s.store.ListTemplates(ctx)
}

// Delete removes the template. Pending and committed rows it produced are kept.
func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Recurring template deleted", log.FieldTemplateID, id)
	return nil
}

func (s *TemplateService) SetActive(ctx context.Context, id int64, active bool) (core.RecurringTemplate, error) {
	if err := s.store.SetTemplateActive(ctx, id, active); err != nil {
		return core.RecurringTemplate{}, err
	}
	return s.store.GetTemplate(ctx, id)
}

func (s *TemplateService) prepare(ctx context.Context, t *core.RecurringTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}

	account, err := s.accounts.Account(ctx, t.AccountID)
	if err != nil {
		return &core.LookupError{Kind: "account", ID: t.AccountID, Err: err}
	}
	switch {
	case t.Currency == "":
		t.Currency = account.Currency
	case t.Currency != account.Currency:
		return core.NewValidationError("currency",
			fmt.Sprintf("%s does not match account currency %s", t.Currency, account.Currency))
	}

	if _, err := s.categories.Category(ctx, t.CategoryID); err != nil {
		return &core.LookupError{Kind: "category", ID: t.CategoryID, Err: err}
	}
	if t.SubcategoryID != 0 {
		sub, err := s.categories.Category(ctx, t.SubcategoryID)
		if err != nil {
			return &core.LookupError{Kind: "subcategory", ID: t.SubcategoryID, Err: err}
		}
		if sub.ParentID != t.CategoryID {
			return core.NewValidationError("subcategory_id",
				fmt.Sprintf("category %d is not a subcategory of %d", t.SubcategoryID, t.CategoryID))
		}
	}
	return nil
}
