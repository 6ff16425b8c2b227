// Package repository provides the data access layer for the wallet core:
// a generic race-safe store primitive and the typed repositories built on it.
package repository

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blocpay/walletcore/pkg/errors"
)

// Store is the race-safe persistence primitive every mutation funnels
// through. Concurrent first-writes of the same unique key degrade to
// idempotent success instead of surfaced conflicts.
type Store[T any] struct {
	db       *gorm.DB
	resource string
	log      *zap.Logger
}

// NewStore creates a typed store. The resource name appears in translated
// error messages ("wallet address not found").
func NewStore[T any](db *gorm.DB, resource string, log *zap.Logger) *Store[T] {
	return &Store[T]{db: db, resource: resource, log: log}
}

// DB exposes the underlying handle for atomic batches.
func (s *Store[T]) DB() *gorm.DB { return s.db }

// Create inserts record. When unique is non-empty the insert upserts with an
// empty update body on those columns, so concurrent duplicate creates
// converge to a single row; the surviving row is returned to every caller and
// the bool reports whether this call inserted it.
func (s *Store[T]) Create(ctx context.Context, record *T, unique map[string]interface{}) (*T, bool, error) {
	tx := s.db.WithContext(ctx)
	if len(unique) == 0 {
		if err := tx.Create(record).Error; err != nil {
			return nil, false, errors.FromStore(err, s.resource, s.resource)
		}
		return record, true, nil
	}

	res := tx.Clauses(clause.OnConflict{
		Columns:   conflictColumns(unique),
		DoNothing: true,
	}).Create(record)
	if res.Error != nil {
		return nil, false, errors.FromStore(res.Error, s.resource, fieldLabel(unique))
	}
	if res.RowsAffected > 0 {
		return record, true, nil
	}

	// Lost the race: another writer holds the row. Load and return it.
	var existing T
	if err := s.db.WithContext(ctx).Where(unique).First(&existing).Error; err != nil {
		return nil, false, errors.FromStore(err, s.resource, fieldLabel(unique))
	}
	return &existing, false, nil
}

// Update applies changes to the row matching where, failing with NotFound if
// it is absent. The existence check and the write are separate statements; a
// concurrent delete in between remains a residual race.
func (s *Store[T]) Update(ctx context.Context, where, changes map[string]interface{}) (*T, error) {
	var existing T
	if err := s.db.WithContext(ctx).Where(where).First(&existing).Error; err != nil {
		return nil, errors.FromStore(err, s.resource, fieldLabel(where))
	}
	if err := s.db.WithContext(ctx).Model(&existing).Updates(changes).Error; err != nil {
		return nil, errors.FromStore(err, s.resource, fieldLabel(changes))
	}
	return &existing, nil
}

// Delete removes the row matching where, failing with NotFound if it is
// absent. Same residual check-then-act race as Update.
func (s *Store[T]) Delete(ctx context.Context, where map[string]interface{}) error {
	var existing T
	if err := s.db.WithContext(ctx).Where(where).First(&existing).Error; err != nil {
		return errors.FromStore(err, s.resource, fieldLabel(where))
	}
	if err := s.db.WithContext(ctx).Where(where).Delete(new(T)).Error; err != nil {
		return errors.FromStore(err, s.resource, fieldLabel(where))
	}
	return nil
}

// Upsert inserts record or, on a conflict over uniqueCols, applies updates to
// the existing row.
func (s *Store[T]) Upsert(ctx context.Context, record *T, uniqueCols []string, updates map[string]interface{}) (*T, error) {
	cols := make([]clause.Column, 0, len(uniqueCols))
	for _, col := range uniqueCols {
		cols = append(cols, clause.Column{Name: col})
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.Assignments(updates),
	}).Create(record).Error
	if err != nil {
		return nil, errors.FromStore(err, s.resource, strings.Join(uniqueCols, ", "))
	}
	return record, nil
}

// FindUnique returns the single row matching where, or NotFound.
func (s *Store[T]) FindUnique(ctx context.Context, where map[string]interface{}) (*T, error) {
	var record T
	if err := s.db.WithContext(ctx).Where(where).First(&record).Error; err != nil {
		return nil, errors.FromStore(err, s.resource, fieldLabel(where))
	}
	return &record, nil
}

// FindMany returns all rows matching where, optionally ordered.
func (s *Store[T]) FindMany(ctx context.Context, where map[string]interface{}, order string) ([]T, error) {
	var records []T
	tx := s.db.WithContext(ctx).Where(where)
	if order != "" {
		tx = tx.Order(order)
	}
	if err := tx.Find(&records).Error; err != nil {
		return nil, errors.FromStore(err, s.resource, fieldLabel(where))
	}
	return records, nil
}

// Op is a single mutation inside an atomic batch.
type Op func(tx *gorm.DB) error

// CreateOp inserts a record, race-protected when unique is non-empty.
func CreateOp[T any](record *T, unique map[string]interface{}) Op {
	return func(tx *gorm.DB) error {
		if len(unique) == 0 {
			return tx.Create(record).Error
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   conflictColumns(unique),
			DoNothing: true,
		}).Create(record).Error
	}
}

// UpdateOp applies changes to the row matching where, failing the batch with
// NotFound if it is absent.
func UpdateOp[T any](where, changes map[string]interface{}) Op {
	return func(tx *gorm.DB) error {
		var existing T
		if err := tx.Where(where).First(&existing).Error; err != nil {
			return err
		}
		return tx.Model(&existing).Updates(changes).Error
	}
}

// DeleteOp removes the row matching where, failing the batch with NotFound if
// it is absent.
func DeleteOp[T any](where map[string]interface{}) Op {
	return func(tx *gorm.DB) error {
		var existing T
		if err := tx.Where(where).First(&existing).Error; err != nil {
			return err
		}
		return tx.Where(where).Delete(new(T)).Error
	}
}

// UpsertOp inserts record or applies updates on conflict over uniqueCols.
func UpsertOp[T any](record *T, uniqueCols []string, updates map[string]interface{}) Op {
	return func(tx *gorm.DB) error {
		cols := make([]clause.Column, 0, len(uniqueCols))
		for _, col := range uniqueCols {
			cols = append(cols, clause.Column{Name: col})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   cols,
			DoUpdates: clause.Assignments(updates),
		}).Create(record).Error
	}
}

// RunAtomic executes a heterogeneous list of ops in one all-or-nothing
// transaction.
func RunAtomic(ctx context.Context, db *gorm.DB, ops ...Op) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.FromStore(err, "record", "record")
}

func conflictColumns(unique map[string]interface{}) []clause.Column {
	names := make([]string, 0, len(unique))
	for col := range unique {
		names = append(names, col)
	}
	sort.Strings(names)
	cols := make([]clause.Column, 0, len(names))
	for _, name := range names {
		cols = append(cols, clause.Column{Name: name})
	}
	return cols
}

// fieldLabel names the fields involved in a mutation for conflict messages,
// keeping raw constraint names out of surfaced errors.
func fieldLabel(fields map[string]interface{}) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
