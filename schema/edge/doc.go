// Package edge provides fluent builders for table-level foreign keys.
//
// An edge connects columns of one table to columns of another. Single
// column references can also be declared inline with
// field.Column.References; use this package for composite keys, named
// constraints and deferrable checks.
//
// # Foreign Keys
//
//	edge.ForeignKey("author_id").References("users", "id")
//
//	// Composite, tenant-scoped key (Nile)
//	edge.ForeignKey("tenant_id", "order_id").
//	    References("orders", "tenant_id", "id").
//	    StorageKey("order_items_order_fk")
//
// # Foreign Key Actions
//
// Control what happens when referenced rows are deleted or updated:
//
//	import "github.com/syssam/dbkit/dialect/sqlschema"
//
//	edge.ForeignKey("post_id").
//	    References("posts", "id").
//	    OnDelete(sqlschema.Cascade)
//
// Available actions:
//   - sqlschema.Cascade: Delete related rows
//   - sqlschema.SetNull: Set foreign key to NULL
//   - sqlschema.Restrict: Prevent deletion
//   - sqlschema.NoAction: Database default
//   - sqlschema.SetDefault: Set to default value
//
// # Deferred Checks
//
//	edge.ForeignKey("parent_id").
//	    References("nodes", "id").
//	    Deferrable().
//	    InitiallyDeferred()
//
// Dialects that cannot defer constraint checks drop the clause when
// rendering; the compatibility validator reports it.
package edge
