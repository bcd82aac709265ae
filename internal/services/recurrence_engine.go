package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/recurrence"
)

// DefaultMaxOccurrences caps how many occurrences one template may produce in a single run.
const DefaultMaxOccurrences = 1000

// EngineStore is the storage the engine needs.
type EngineStore interface {
	ports.TemplateStore
	ports.OccurrenceStore
}

// TemplateWarning reports a template skipped or only partly processed by a run.
type TemplateWarning struct {
	TemplateID int64  `json:"template_id"`
	Reason     string `json:"reason"`
}

// GenerateResult summarizes one generation run. Created is the success signal.
type GenerateResult struct {
	Created  int               `json:"created"`
	Examined int               `json:"examined"`
	Warnings []TemplateWarning `json:"warnings"`
}

// RecurrenceEngine expands active recurring templates into pending transactions.
type RecurrenceEngine struct {
	store          EngineStore
	publisher      ports.EventPublisher
	locks          *KeyedMutex
	maxOccurrences int
	logger         *log.Logger
}

// NewRecurrenceEngine creates an engine. publisher may be nil.
func NewRecurrenceEngine(store EngineStore, publisher ports.EventPublisher, maxOccurrences int, logger *log.Logger) *RecurrenceEngine {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RecurrenceEngine{
		store:          store,
		publisher:      publisher,
		locks:          NewKeyedMutex(),
		maxOccurrences: maxOccurrences,
		logger:         logger.WithComponent(log.ComponentRecurrence),
	}
}

// Generate materializes every occurrence due on or before asOf. An empty asOf means today (UTC).
//
// Invalid templates and per-template storage failures become warnings; only failing to list
// the templates, or cancellation of ctx, returns an error. Running Generate again with the
// same asOf creates nothing.
func (e *RecurrenceEngine) Generate(ctx context.Context, asOf core.Date) (GenerateResult, error) {
	if asOf.IsEmpty() {
		asOf = core.DateOf(time.Now())
	}
	result := GenerateResult{Warnings: []TemplateWarning{}}

	templates, err := e.store.ListActiveTemplates(ctx)
	if err != nil {
		return result, fmt.Errorf("list active templates: %w", err)
	}

	e.logger.InfoContext(ctx, "Generating recurring transactions",
		log.FieldAsOf, asOf.String(),
		"active_templates", len(templates))

	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !recurrence.IsEligible(t, asOf) {
			continue
		}
		result.Examined++

		created, warning, err := e.generateTemplate(ctx, t.ID, asOf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			e.logger.WarnContext(ctx, "Skipping recurring template",
				log.FieldTemplateID, t.ID,
				log.FieldErrorKind, core.ErrorKind(err),
				log.FieldError, err)
			result.Warnings = append(result.Warnings, TemplateWarning{TemplateID: t.ID, Reason: err.Error()})
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, TemplateWarning{TemplateID: t.ID, Reason: warning})
		}
		if created == 0 {
			continue
		}
		result.Created += created

		ev := core.NewLedgerEvent(core.EventPendingGenerated)
		ev.TemplateID = t.ID
		ev.Count = created
		publish(ctx, e.publisher, e.logger, ev)
	}

	e.logger.InfoContext(ctx, "Recurring generation complete",
		log.FieldAsOf, asOf.String(),
		"created", result.Created,
		"examined", result.Examined,
		"warnings", len(result.Warnings))

	return result, nil
}

// generateTemplate runs under the template's lock so concurrent runs never interleave
// the existence check and the insert. The template is re-read inside the lock.
func (e *RecurrenceEngine) generateTemplate(ctx context.Context, id int64, asOf core.Date) (int, string, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	t, err := e.store.GetTemplate(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// deleted since the listing
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	if !recurrence.IsEligible(t, asOf) {
		return 0, "", nil
	}

	exp, err := recurrence.Occurrences(ctx, t, t.LastGenerated, asOf, e.maxOccurrences)
	if err != nil {
		return 0, "", err
	}
	if len(exp.Dates) == 0 {
		return 0, "", nil
	}

	existing, err := e.store.OccurrenceDates(ctx, t.ID)
	if err != nil {
		return 0, "", err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		seen[d.String()] = struct{}{}
	}

	items := make([]core.PendingTransaction, 0, len(exp.Dates))
	for _, d := range exp.Dates {
		if _, ok := seen[d.String()]; ok {
			continue
		}
		items = append(items, t.Occurrence(d))
	}

	last := exp.Dates[len(exp.Dates)-1]
	created, err := e.store.MaterializeOccurrences(ctx, t.ID, items, last)
	if err != nil {
		return 0, "", err
	}
	if skipped := len(items) - created; skipped > 0 {
		e.logger.DebugContext(ctx, "Occurrences already materialized by a concurrent run",
			log.FieldTemplateID, t.ID,
			log.FieldCount, skipped)
	}

	var warning string
	if exp.Truncated {
		warning = fmt.Sprintf("expansion capped at %d occurrences, resuming after %s on the next run", e.maxOccurrences, last)
	}

	e.logger.DebugContext(ctx, "Template expanded",
		log.FieldTemplateID, t.ID,
		"dates", len(exp.Dates),
		"created", created,
		"last_generated", last.String())

	return created, warning, nil
}

// publish sends ev when a publisher is configured. Failures are logged; the mutation stands.
func publish(ctx context.Context, p ports.EventPublisher, logger *log.Logger, ev core.LedgerEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, ev.Type,
			log.FieldEventID, ev.ID,
			log.FieldError, err)
	}
}
