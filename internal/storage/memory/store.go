// Package memory is an in-process backend with the same semantics as the SQLite repository.
// Data is lost on restart; it is meant for local runs and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
)

type occurrenceKey struct {
	templateID int64
	date       string
}

type Store struct {
	mu sync.Mutex

	templates  map[int64]core.RecurringTemplate
	pending    map[int64]core.PendingTransaction
	committed  map[int64]core.CommittedTransaction
	accounts   map[int64]core.Account
	categories map[int64]core.Category

	// occurrences mirrors UNIQUE(template_id, occurrence_date).
	occurrences map[occurrenceKey]int64

	nextTemplate  int64
	nextPending   int64
	nextCommitted int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		templates:   make(map[int64]core.RecurringTemplate),
		pending:     make(map[int64]core.PendingTransaction),
		committed:   make(map[int64]core.CommittedTransaction),
		accounts:    make(map[int64]core.Account),
		categories:  make(map[int64]core.Category),
		occurrences: make(map[occurrenceKey]int64),
		now:         time.Now,
	}
}

// NewFromFiles builds a store whose registry is seeded by LoadSeed(base).
func NewFromFiles(base string) *Store {
	s := New()
	accounts, categories := LoadSeed(base)
	_ = s.SeedRegistry(context.Background(), accounts, categories)
	return s
}

// LoadSeed reads seed_accounts.txt ("id,name,currency[,owner]") and
// seed_categories.txt ("id,name[,parent_id]") under base. Missing files fall
// back to a small default registry.
func LoadSeed(base string) ([]core.Account, []core.Category) {
	accounts := parseAccounts(readLines(filepath.Join(base, "seed_accounts.txt")))
	categories := parseCategories(readLines(filepath.Join(base, "seed_categories.txt")))
	if len(accounts) == 0 {
		accounts = []core.Account{{ID: 1, Name: "Checking", Currency: "EUR"}}
	}
	if len(categories) == 0 {
		categories = []core.Category{
			{ID: 1, Name: "Housing"},
			{ID: 2, Name: "Utilities"},
			{ID: 3, Name: "Income"},
		}
	}
	return accounts, categories
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

// Templates

func (s *Store) CreateTemplate(_ context.Context, t core.RecurringTemplate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTemplate++
	now := s.now()
	t.ID = s.nextTemplate
	t.CreatedAt, t.UpdatedAt = now, now
	s.templates[t.ID] = t
	return t.ID, nil
}

func (s *Store) UpdateTemplate(_ context.Context, t core.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.templates[t.ID]
	if !ok {
		return fmt.Errorf("template %d: %w", t.ID, core.ErrNotFound)
	}
	t.CreatedAt = old.CreatedAt
	t.LastGenerated = old.LastGenerated
	t.UpdatedAt = s.now()
	s.templates[t.ID] = t
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	delete(s.templates, id)
	// Mirror ON DELETE SET NULL on pending rows.
	for key, pid := range s.occurrences {
		if key.templateID != id {
			continue
		}
		p := s.pending[pid]
		p.TemplateID = 0
		s.pending[pid] = p
		delete(s.occurrences, key)
	}
	return nil
}

func (s *Store) GetTemplate(_ context.Context, id int64) (core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return core.RecurringTemplate{}, fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) ListTemplates(context.Context) ([]core.RecurringTemplate, error) {
	return s.listTemplates(false), nil
}

func (s *Store) ListActiveTemplates(context.Context) ([]core.RecurringTemplate, error) {
	return s.listTemplates(true), nil
}

func (s *Store) listTemplates(activeOnly bool) []core.RecurringTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) SetTemplateActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	t.IsActive = active
	t.UpdatedAt = s.now()
	s.templates[id] = t
	return nil
}

// Occurrences

func (s *Store) OccurrenceDates(_ context.Context, templateID int64) ([]core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Date
	for key, pid := range s.occurrences {
		if key.templateID == templateID {
			out = append(out, s.pending[pid].OccurrenceDate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *Store) MaterializeOccurrences(_ context.Context, templateID int64, items []core.PendingTransaction, lastGenerated core.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateID]
	if !ok {
		return 0, fmt.Errorf("template %d: %w", templateID, core.ErrNotFound)
	}
	now := s.now()
	created := 0
	for _, p := range items {
		key := occurrenceKey{templateID: templateID, date: p.OccurrenceDate.String()}
		if _, exists := s.occurrences[key]; exists {
			continue
		}
		s.nextPending++
		p.ID = s.nextPending
		p.TemplateID = templateID
		p.Status = core.StatusPending
		p.CreatedAt = now
		s.pending[p.ID] = p
		s.occurrences[key] = p.ID
		created++
	}
	if !lastGenerated.IsEmpty() && (t.LastGenerated.IsEmpty() || t.LastGenerated.Before(lastGenerated)) {
		t.LastGenerated = lastGenerated
		t.UpdatedAt = now
		s.templates[templateID] = t
	}
	return created, nil
}

// Pending transactions

func (s *Store) GetPending(_ context.Context, id int64) (core.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return core.PendingTransaction{}, fmt.Errorf("pending transaction %d: %w", id, core.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListPending(_ context.Context, status core.TransactionStatus) ([]core.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PendingTransaction
	for _, p := range s.pending {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurrenceDate.Equal(out[j].OccurrenceDate) {
			return out[i].OccurrenceDate.Before(out[j].OccurrenceDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ConfirmPending(_ context.Context, id int64, at time.Time) (core.CommittedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pendingForTransition(id)
	if err != nil {
		return core.CommittedTransaction{}, err
	}
	s.nextCommitted++
	c := p.Commit(at)
	c.ID = s.nextCommitted
	s.committed[c.ID] = c

	p.Status = core.StatusConfirmed
	p.CommittedID = c.ID
	p.ResolvedAt = at
	s.pending[id] = p
	slog.Debug("Pending transaction confirmed in memory", "pending_id", id, "committed_id", c.ID)
	return c, nil
}

func (s *Store) RejectPending(_ context.Context, id int64, at time.Time) (core.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pendingForTransition(id)
	if err != nil {
		return core.PendingTransaction{}, err
	}
	p.Status = core.StatusRejected
	p.ResolvedAt = at
	s.pending[id] = p
	return p, nil
}

func (s *Store) pendingForTransition(id int64) (core.PendingTransaction, error) {
	p, ok := s.pending[id]
	if !ok {
		return p, fmt.Errorf("pending transaction %d: %w", id, core.ErrNotFound)
	}
	if p.Status != core.StatusPending {
		return p, fmt.Errorf("pending transaction %d is %s: %w", id, p.Status, core.ErrConflict)
	}
	return p, nil
}

// Committed ledger

func (s *Store) GetCommitted(_ context.Context, id int64) (core.CommittedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.committed[id]
	if !ok {
		return core.CommittedTransaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCommitted(_ context.Context, from, to core.Date) ([]core.CommittedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CommittedTransaction
	for _, c := range s.committed {
		if !from.IsEmpty() && c.Date.Before(from) {
			continue
		}
		if !to.IsEmpty() && c.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Registry

func (s *Store) Account(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (s *Store) Category(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) SeedRegistry(_ context.Context, accounts []core.Account, categories []core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	for _, c := range categories {
		if c.ParentID != 0 {
			if _, ok := s.categories[c.ParentID]; !ok {
				return fmt.Errorf("category %d: parent %d: %w", c.ID, c.ParentID, core.ErrNotFound)
			}
		}
		s.categories[c.ID] = c
	}
	return nil
}

// Seed files

func parseAccounts(lines []string) []core.Account {
	var out []core.Account
	for _, line := range lines {
		f := splitFields(line)
		if len(f) < 3 {
			slog.Warn("Skipping malformed account seed line", "line", line)
			continue
		}
		id, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil || id <= 0 {
			slog.Warn("Skipping account seed line with bad id", "line", line)
			continue
		}
		a := core.Account{ID: id, Name: f[1], Currency: strings.ToUpper(f[2])}
		if len(f) > 3 {
			a.Owner = f[3]
		}
		out = append(out, a)
	}
	return out
}

func parseCategories(lines []string) []core.Category {
	var out []core.Category
	for _, line := range lines {
		f := splitFields(line)
		if len(f) < 2 {
			slog.Warn("Skipping malformed category seed line", "line", line)
			continue
		}
		id, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil || id <= 0 {
			slog.Warn("Skipping category seed line with bad id", "line", line)
			continue
		}
		c := core.Category{ID: id, Name: f[1]}
		if len(f) > 2 && f[2] != "" {
			if c.ParentID, err = strconv.ParseInt(f[2], 10, 64); err != nil {
				slog.Warn("Skipping category seed line with bad parent", "line", line)
				continue
			}
		}
		out = append(out, c)
	}
	// Parents first so SeedRegistry can check them.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ParentID == 0 && out[j].ParentID != 0 })
	return out
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
