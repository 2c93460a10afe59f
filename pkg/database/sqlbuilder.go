package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// Excluded references the row proposed for insertion inside an upsert.
func Excluded(column string) any {
	return sqlbuilder.Raw("EXCLUDED." + column)
}

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

// OnConflict appends ON CONFLICT (columns) DO UPDATE and returns the builder
// for the SET clause.
func (b *InsertBuilder) OnConflict(columns ...string) *UpdateBuilder {
	ub := NewUpdateBuilder()
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE %s", strings.Join(columns, ", "), b.Var(ub)))
	return ub
}

type UpdateBuilder struct {
	*sqlbuilder.UpdateBuilder
}

func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{sqlbuilder.PostgreSQL.NewUpdateBuilder()}
}

// SetExcluded overwrites each column with the value proposed for insertion.
// Only meaningful on the builder returned by OnConflict.
func (b *UpdateBuilder) SetExcluded(columns ...string) *UpdateBuilder {
	assignments := make([]string, 0, len(columns))
	for _, col := range columns {
		assignments = append(assignments, b.Assign(col, Excluded(col)))
	}
	b.Set(assignments...)
	return b
}

type DeleteBuilder struct {
	*sqlbuilder.DeleteBuilder
}

// Returning appends a RETURNING clause so the deleted rows can be scanned
func (b *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	b.SQL("RETURNING " + strings.Join(columns, ", "))
	return b
}

type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

func NewSelectBuilder() *SelectBuilder {
	return &SelectBuilder{sqlbuilder.PostgreSQL.NewSelectBuilder()}
}

// Struct maps a row type with db tags to Postgres statements
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}

func (s *Struct) SelectFrom(table string) *SelectBuilder {
	return &SelectBuilder{s.Struct.SelectFrom(table)}
}

func (s *Struct) InsertInto(table string, v ...any) *InsertBuilder {
	return &InsertBuilder{s.Struct.InsertInto(table, v...)}
}

func (s *Struct) Update(table string, v any) *UpdateBuilder {
	return &UpdateBuilder{s.Struct.Update(table, v)}
}

func (s *Struct) DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{s.Struct.DeleteFrom(table)}
}
