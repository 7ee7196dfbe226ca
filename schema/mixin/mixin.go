package mixin

import (
	"github.com/syssam/dbkit/schema/edge"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// Mixin is a reusable group of columns, indexes and foreign keys that is
// merged into a table definition.
type Mixin interface {
	Fields() []field.Builder
	Indexes() []*index.Builder
	ForeignKeys() []*edge.Builder
}

// Schema is the default implementation for the Mixin interface.
// It should be embedded in all custom mixin definitions.
//
// Example:
//
//	type MyMixin struct {
//	    mixin.Schema
//	}
//
//	func (MyMixin) Fields() []field.Builder {
//	    return []field.Builder{
//	        field.Text("custom_column"),
//	    }
//	}
type Schema struct{}

// Fields returns the columns of the mixin.
// Override this method to add custom columns.
func (Schema) Fields() []field.Builder { return nil }

// Indexes returns the indexes of the mixin.
// Override this method to add custom database indexes.
func (Schema) Indexes() []*index.Builder { return nil }

// ForeignKeys returns the foreign keys of the mixin.
// Override this method to add table-level foreign keys.
func (Schema) ForeignKeys() []*edge.Builder { return nil }

// schema mixin must implement `Mixin` interface.
var _ Mixin = (*Schema)(nil)

// =============================================================================
// Built-in Mixins
// =============================================================================

// Time adds created_at and updated_at columns to a table.
// Both default to now() and are NOT NULL.
//
// Example:
//
//	schema.DefineTable("users", cols, schema.Mixins(mixin.Time{}))
type Time struct {
	Schema
}

// Fields returns the time tracking columns.
func (Time) Fields() []field.Builder {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// CreateTime adds only the created_at column to a table.
// Useful when you only need creation tracking without update tracking.
type CreateTime struct {
	Schema
}

// Fields returns the created_at column.
func (CreateTime) Fields() []field.Builder {
	return []field.Builder{
		field.Timestamptz("created_at").
			NotNull().
			Default(field.Now()).
			Comment("Timestamp when the row was created"),
	}
}

// UpdateTime adds only the updated_at column to a table.
type UpdateTime struct {
	Schema
}

// Fields returns the updated_at column.
func (UpdateTime) Fields() []field.Builder {
	return []field.Builder{
		field.Timestamptz("updated_at").
			NotNull().
			Default(field.Now()).
			Comment("Timestamp when the row was last updated"),
	}
}

// SoftDelete adds a nullable deleted_at column for soft deletion support.
// When set, the row is considered deleted but remains in the database.
type SoftDelete struct {
	Schema
}

// Fields returns the soft delete column.
func (SoftDelete) Fields() []field.Builder {
	return []field.Builder{
		field.Timestamptz("deleted_at").
			Nullable().
			Comment("Timestamp when the row was soft deleted (NULL means not deleted)"),
	}
}

// TimeSoftDelete combines Time and SoftDelete mixins.
// Adds created_at, updated_at, and deleted_at columns.
type TimeSoftDelete struct {
	Schema
}

// Fields returns all timestamp and soft delete columns.
func (TimeSoftDelete) Fields() []field.Builder {
	return append(Time{}.Fields(), SoftDelete{}.Fields()...)
}

// UUIDPrimaryKey adds an id UUID PRIMARY KEY column defaulting to
// gen_random_uuid().
type UUIDPrimaryKey struct {
	Schema
}

// Fields returns the id column.
func (UUIDPrimaryKey) Fields() []field.Builder {
	return []field.Builder{
		field.UUID("id").PrimaryKey().Default(field.GenRandomUUID()),
	}
}

// IdentityPrimaryKey adds an id BIGINT GENERATED ALWAYS AS IDENTITY
// primary key.
type IdentityPrimaryKey struct {
	Schema
}

// Fields returns the id column.
func (IdentityPrimaryKey) Fields() []field.Builder {
	return []field.Builder{
		field.BigInt("id").PrimaryKey().GeneratedAlwaysAsIdentity(),
	}
}

// Tenant adds the tenant_id UUID NOT NULL column that marks a Nile tenant
// table, with an optional foreign key to the built-in tenants table.
type Tenant struct {
	Schema
	// Reference adds tenant_id REFERENCES tenants(id).
	Reference bool
}

// Fields returns the tenant_id column.
func (t Tenant) Fields() []field.Builder {
	c := field.UUID("tenant_id").NotNull()
	if t.Reference {
		c.References("tenants", "id")
	}
	return []field.Builder{c}
}

// Indexes returns an index on tenant_id.
func (Tenant) Indexes() []*index.Builder {
	return []*index.Builder{index.Fields("tenant_id")}
}

// Fields wraps a list of column builders as a mixin.
//
//	audit := mixin.Fields(field.Text("created_by"), field.Text("updated_by"))
func Fields(builders ...field.Builder) Mixin {
	return fieldsMixin(builders)
}

type fieldsMixin []field.Builder

func (m fieldsMixin) Fields() []field.Builder    { return m }
func (fieldsMixin) Indexes() []*index.Builder    { return nil }
func (fieldsMixin) ForeignKeys() []*edge.Builder { return nil }

// Comment wraps a mixin and sets the comment of every column that has
// none.
//
//	mixin.Comment(mixin.Time{}, "managed by triggers")
func Comment(m Mixin, comment string) Mixin {
	return commenter{Mixin: m, comment: comment}
}

type commenter struct {
	Mixin
	comment string
}

func (c commenter) Fields() []field.Builder {
	fields := c.Mixin.Fields()
	for i := range fields {
		desc := fields[i].Descriptor()
		if desc.Comment == "" {
			desc.Comment = c.comment
		}
	}
	return fields
}
