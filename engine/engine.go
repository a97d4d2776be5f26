package engine

import (
	"fmt"
	"sync"

	"github.com/okvist/labsheet/dataset"
	"github.com/okvist/labsheet/formula"
	"github.com/okvist/labsheet/internal/logger"
)

// Engine manages formula parsing and table evaluation for one workspace.
// Parsed formulas are cached by formula ID behind an RWMutex, so concurrent
// evaluations only read. Evaluation itself is a pure function of the active
// formula list and the table snapshot.
type Engine struct {
	store  formula.Store
	cache  formula.Cache
	parsed map[string]*ParsedFormula
	mu     sync.RWMutex
}

// NewEngine creates an engine and parses all active formulas from the store.
// A stored formula that no longer parses is skipped with a warning rather
// than failing construction: one bad formula never blocks the others.
func NewEngine(store formula.Store) (*Engine, error) {
	en := &Engine{
		store:  store,
		cache:  formula.NewInMemoryCache(formula.DefaultCacheConfig()),
		parsed: make(map[string]*ParsedFormula),
	}

	if err := en.parseAllFormulas(); err != nil {
		return nil, fmt.Errorf("failed to parse formulas: %w", err)
	}

	return en, nil
}

// ParseFormula parses a single formula expression and caches the result.
func (en *Engine) ParseFormula(formulaID, expression string) error {
	parsed, err := Parse(expression)
	if err != nil {
		return err
	}

	en.mu.Lock()
	en.parsed[formulaID] = parsed
	en.mu.Unlock()

	return nil
}

// parseAllFormulas parses all active formulas from the store and populates
// the active-formula cache. Unparsable formulas are skipped.
func (en *Engine) parseAllFormulas() error {
	formulas, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, f := range formulas {
		if err := en.ParseFormula(f.ID, f.Expression); err != nil {
			logger.Warn("skipping unparsable formula",
				"formulaId", f.ID, "name", f.Name, "error", err.Error())
		}
	}

	en.cache.Set(formulas)

	return nil
}

// AddFormula validates that the formula parses, then adds it to the store.
// If the store rejects it, the parsed program is removed again so the two
// stay consistent.
func (en *Engine) AddFormula(f *formula.Formula) error {
	if _, err := en.store.Get(f.ID); err == nil {
		return fmt.Errorf("formula with ID %s already exists", f.ID)
	}

	if err := en.ParseFormula(f.ID, f.Expression); err != nil {
		return fmt.Errorf("formula validation failed: %w", err)
	}

	if err := en.store.Add(f); err != nil {
		en.mu.Lock()
		delete(en.parsed, f.ID)
		en.mu.Unlock()
		return err
	}

	en.cache.Invalidate()

	return nil
}

// UpdateFormula validates the new expression, then updates the store.
func (en *Engine) UpdateFormula(f *formula.Formula) error {
	if err := en.ParseFormula(f.ID, f.Expression); err != nil {
		return fmt.Errorf("formula validation failed: %w", err)
	}

	if err := en.store.Update(f); err != nil {
		return err
	}

	en.cache.Invalidate()

	return nil
}

// DeleteFormula removes a formula from the store and the parse cache.
func (en *Engine) DeleteFormula(formulaID string) error {
	if err := en.store.Delete(formulaID); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.parsed, formulaID)
	en.mu.Unlock()

	en.cache.Invalidate()

	return nil
}

// EvaluateTable evaluates every active formula against the table snapshot
// and returns the aggregated highlights. Formulas that never parsed are
// skipped; unresolved variables, unreadable cells and division by zero make
// individual columns indeterminate without surfacing an error.
func (en *Engine) EvaluateTable(tbl *dataset.Table) ([]HighlightedCell, error) {
	formulas := en.cache.Get()
	if formulas == nil {
		var err error
		formulas, err = en.store.ListActive()
		if err != nil {
			return nil, err
		}
		en.cache.Set(formulas)
	}

	var hits []Hit
	for _, f := range formulas {
		en.mu.RLock()
		parsed, exists := en.parsed[f.ID]
		en.mu.RUnlock()

		if !exists {
			// Never parsed (malformed at authoring time); evaluate the rest.
			continue
		}

		hits = append(hits, EvaluateFormula(f, parsed, tbl)...)
	}

	return Aggregate(hits, formulas), nil
}

// Evaluate is the one-shot form: it parses the supplied formulas and
// evaluates them against the table without touching any store. Inactive and
// unparsable formulas contribute nothing. Evaluating the same inputs twice
// yields identical output.
func Evaluate(formulas []*formula.Formula, tbl *dataset.Table) []HighlightedCell {
	var hits []Hit
	for _, f := range formulas {
		if !f.Active {
			continue
		}
		parsed, err := Parse(f.Expression)
		if err != nil {
			continue
		}
		hits = append(hits, EvaluateFormula(f, parsed, tbl)...)
	}
	return Aggregate(hits, formulas)
}
