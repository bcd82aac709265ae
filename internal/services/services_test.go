package services

import (
	"context"
	"errors"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage/memory"
)

// recordingPublisher collects published events; err makes every publish fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) byType(t core.EventType) []core.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []core.LedgerEvent
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

var errBrokerDown = errors.New("broker down")

func testLogger() *log.Logger {
	return log.Discard()
}

func newStore() *memory.Store {
	s := memory.New()
	_ = s.SeedRegistry(context.Background(),
		[]core.Account{
			{ID: 1, Name: "Checking", Currency: "EUR"},
			{ID: 2, Name: "Brokerage", Currency: "USD"},
		},
		[]core.Category{
			{ID: 10, Name: "Housing"},
			{ID: 11, ParentID: 10, Name: "Rent"},
			{ID: 20, Name: "Income"},
			{ID: 21, ParentID: 20, Name: "Salary"},
		})
	return s
}

func monthlyTemplate(start core.Date) core.RecurringTemplate {
	return core.RecurringTemplate{
		Name:          "Rent",
		AccountID:     1,
		Amount:        core.Money{Cents: -120000},
		Currency:      "EUR",
		CategoryID:    10,
		SubcategoryID: 11,
		Pattern:       core.Monthly,
		Interval:      1,
		StartDate:     start,
		IsActive:      true,
	}
}

func mustCreate(s *memory.Store, t core.RecurringTemplate) int64 {
	id, err := s.CreateTemplate(context.Background(), t)
	if err != nil {
		panic(err)
	}
	return id
}
