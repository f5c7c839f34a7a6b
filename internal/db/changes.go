package db

import (
	"context"      // Cancellation
	"fmt"          // Error wrapping
	"reflect"      // Field access for truncation
	"sync"         // Schema parse cache
	"unicode/utf8" // Character counting

	"kudo/internal/domain" // Persisted models
	"kudo/internal/errs"   // Error taxonomy

	"gorm.io/gorm"        // ORM
	"gorm.io/gorm/schema" // Model metadata
)

type changeKind int

const (
	changeAdd changeKind = iota
	changeUpdate
	changeRemove
)

// change is one queued write
type change struct {
	kind   changeKind
	entity any // Pointer to a model
}

// maxLengthTable maps a model type to its size-limited string fields
type maxLengthTable map[reflect.Type]map[string]int

// Add queues entity for insertion
func (g *Gateway) Add(entity any) {
	g.pending = append(g.pending, change{kind: changeAdd, entity: entity})
}

// Update queues a full-row update of entity, located by primary key
func (g *Gateway) Update(entity any) {
	g.pending = append(g.pending, change{kind: changeUpdate, entity: entity})
}

// Remove queues deletion of entity, located by primary key
func (g *Gateway) Remove(entity any) {
	g.pending = append(g.pending, change{kind: changeRemove, entity: entity})
}

// Pending returns the number of queued changes
func (g *Gateway) Pending() int {
	return len(g.pending)
}

// SaveAll truncates over-long string fields of queued inserts and updates, then
// writes every queued change in one transaction. It returns the number of affected
// rows. The queue is cleared whether or not the write succeeds.
func (g *Gateway) SaveAll(ctx context.Context) (int64, error) {
	changes := g.pending
	g.pending = nil
	if len(changes) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, Classify(ctx, err)
	}
	lengths, err := g.maxLengths()
	if err != nil {
		return 0, err
	}
	for _, c := range changes {
		if c.kind != changeRemove {
			truncateStrings(c.entity, lengths)
		}
	}
	var affected int64
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range changes {
			var res *gorm.DB
			switch c.kind {
			case changeAdd:
				res = tx.Create(c.entity)
			case changeUpdate:
				res = tx.Model(c.entity).Select("*").Updates(c.entity)
			case changeRemove:
				res = tx.Delete(c.entity)
			}
			if res.Error != nil {
				return res.Error // Rolls back the whole change set
			}
			affected += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, Classify(ctx, err)
	}
	return affected, nil
}

// maxLengths builds the truncation table on first use
func (g *Gateway) maxLengths() (maxLengthTable, error) {
	g.meta.once.Do(func() {
		g.meta.maxLengths, g.meta.err = buildMaxLengths(g.db.NamingStrategy)
	})
	return g.meta.maxLengths, g.meta.err
}

// buildMaxLengths reads the declared column sizes of every model
func buildMaxLengths(namer schema.Namer) (maxLengthTable, error) {
	cache := &sync.Map{}
	table := make(maxLengthTable)
	for _, model := range domain.Models() {
		s, err := schema.Parse(model, cache, namer)
		if err != nil {
			return nil, fmt.Errorf("%w: parse %T: %w", errs.ErrStoreUnavailable, model, err)
		}
		fields := make(map[string]int)
		for _, field := range s.Fields {
			if field.Size > 0 && field.FieldType.Kind() == reflect.String {
				fields[field.Name] = field.Size
			}
		}
		table[s.ModelType] = fields
	}
	return table, nil
}

// truncateStrings cuts every size-limited string field of entity to its limit
func truncateStrings(entity any, lengths maxLengthTable) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v = v.Elem()
	fields, ok := lengths[v.Type()]
	if !ok {
		return
	}
	for name, size := range fields {
		field := v.FieldByName(name)
		if !field.CanSet() {
			continue
		}
		if truncated := truncate(field.String(), size); truncated != field.String() {
			field.SetString(truncated)
		}
	}
}

// truncate keeps the first size characters of value
func truncate(value string, size int) string {
	if value == "" || utf8.RuneCountInString(value) <= size {
		return value
	}
	return string([]rune(value)[:size])
}

// Truncate applies the column-width policy to entity immediately, so callers can
// derive values from the form that will be stored
func (g *Gateway) Truncate(entity any) error {
	lengths, err := g.maxLengths()
	if err != nil {
		return err
	}
	truncateStrings(entity, lengths)
	return nil
}
