// Package mixin provides reusable column groups for dbkit table
// definitions.
//
// A mixin is a reusable set of columns, indexes and foreign keys that can
// be merged into multiple table definitions.
//
// Creating Custom Mixins:
//
// To create a custom mixin, embed Schema and override the methods you need:
//
//	type AuditMixin struct {
//	    mixin.Schema
//	}
//
//	func (AuditMixin) Fields() []field.Builder {
//	    return []field.Builder{
//	        field.Text("created_by"),
//	        field.Text("updated_by"),
//	    }
//	}
//
//	func (AuditMixin) Indexes() []*index.Builder {
//	    return []*index.Builder{
//	        index.Fields("created_by"),
//	    }
//	}
//
// Using Mixins:
//
//	schema.DefineTable("orders", cols,
//	    schema.Mixins(mixin.UUIDPrimaryKey{}, mixin.Tenant{}, AuditMixin{}),
//	)
//
// # Mixin Order
//
// Mixin columns are placed before the table's own columns, in the order
// the mixins are listed. A table column with the same name as a mixin
// column replaces it in place.
//
// # Built-in Mixins
//
//   - Time: created_at and updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//   - CreateTime, UpdateTime: one of the two
//   - SoftDelete: nullable deleted_at
//   - UUIDPrimaryKey: id UUID PRIMARY KEY DEFAULT gen_random_uuid()
//   - IdentityPrimaryKey: id BIGINT GENERATED ALWAYS AS IDENTITY
//   - Tenant: tenant_id UUID NOT NULL, the marker of a Nile tenant table
package mixin
