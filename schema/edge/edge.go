package edge

import (
	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect/sqlschema"
)

// A Descriptor for foreign key configuration.
type Descriptor struct {
	Columns           []string                    // referencing columns.
	RefTable          string                      // referenced table.
	RefColumns        []string                    // referenced columns.
	StorageKey        string                      // constraint name.
	OnDelete          sqlschema.ReferentialAction // ON DELETE action.
	OnUpdate          sqlschema.ReferentialAction // ON UPDATE action.
	Deferrable        bool                        // DEFERRABLE.
	InitiallyDeferred bool                        // INITIALLY DEFERRED.
	Err               error
}

// Builder for foreign keys.
type Builder struct {
	desc *Descriptor
}

// ForeignKey starts a foreign key over the given referencing columns.
func ForeignKey(columns ...string) *Builder {
	return &Builder{desc: &Descriptor{Columns: columns}}
}

// References sets the referenced table and columns. The number of columns
// must match the referencing side.
func (b *Builder) References(table string, columns ...string) *Builder {
	b.desc.RefTable = table
	b.desc.RefColumns = columns
	return b
}

// StorageKey sets the constraint name.
func (b *Builder) StorageKey(name string) *Builder {
	b.desc.StorageKey = name
	return b
}

// OnDelete sets the ON DELETE action.
func (b *Builder) OnDelete(a sqlschema.ReferentialAction) *Builder {
	b.desc.OnDelete = a
	return b
}

// OnUpdate sets the ON UPDATE action.
func (b *Builder) OnUpdate(a sqlschema.ReferentialAction) *Builder {
	b.desc.OnUpdate = a
	return b
}

// Deferrable makes the constraint DEFERRABLE.
func (b *Builder) Deferrable() *Builder {
	b.desc.Deferrable = true
	return b
}

// InitiallyDeferred makes the constraint DEFERRABLE INITIALLY DEFERRED.
func (b *Builder) InitiallyDeferred() *Builder {
	b.desc.Deferrable = true
	b.desc.InitiallyDeferred = true
	return b
}

// Descriptor validates and returns the foreign key descriptor.
func (b *Builder) Descriptor() *Descriptor {
	d := b.desc
	if d.Err != nil {
		return d
	}
	switch {
	case len(d.Columns) == 0:
		d.Err = dbkit.NewInvalidArgumentError("edge.ForeignKey", d.StorageKey, "at least one column is required")
	case d.RefTable == "":
		d.Err = dbkit.NewInvalidArgumentError("edge.ForeignKey", d.StorageKey, "referenced table is required")
	case len(d.RefColumns) != len(d.Columns):
		d.Err = dbkit.InvalidArgumentf("edge.ForeignKey", d.StorageKey,
			"%d referencing columns but %d referenced columns", len(d.Columns), len(d.RefColumns))
	}
	return d
}
