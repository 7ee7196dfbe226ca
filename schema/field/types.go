package field

import (
	"strconv"

	"github.com/syssam/dbkit/dialect/sql"
)

// Integers.

// SmallInt returns a SMALLINT column builder.
func SmallInt(name string) *Column { return newColumn(name, "SMALLINT", FamilyInteger) }

// Integer returns an INTEGER column builder.
func Integer(name string) *Column { return newColumn(name, "INTEGER", FamilyInteger) }

// BigInt returns a BIGINT column builder.
func BigInt(name string) *Column { return newColumn(name, "BIGINT", FamilyInteger) }

// Serial returns a SERIAL column builder.
func Serial(name string) *Column { return newColumn(name, "SERIAL", FamilySerial) }

// SmallSerial returns a SMALLSERIAL column builder.
func SmallSerial(name string) *Column { return newColumn(name, "SMALLSERIAL", FamilySerial) }

// BigSerial returns a BIGSERIAL column builder.
func BigSerial(name string) *Column { return newColumn(name, "BIGSERIAL", FamilySerial) }

// Numbers.

// Decimal returns a DECIMAL(p, s) column builder.
func Decimal(name string, precision, scale int) *Column {
	return newColumn(name, "DECIMAL", FamilyNumeric).Precision(precision).Scale(scale)
}

// Numeric returns an unconstrained NUMERIC column builder. Use Precision
// and Scale to constrain it.
func Numeric(name string) *Column { return newColumn(name, "NUMERIC", FamilyNumeric) }

// Real returns a REAL column builder.
func Real(name string) *Column { return newColumn(name, "REAL", FamilyFloat) }

// DoublePrecision returns a DOUBLE PRECISION column builder.
func DoublePrecision(name string) *Column { return newColumn(name, "DOUBLE PRECISION", FamilyFloat) }

// Money returns a MONEY column builder.
func Money(name string) *Column { return newColumn(name, "MONEY", FamilyMoney) }

// Text and binary.

// Varchar returns a VARCHAR(n) column builder. A zero length yields an
// unbounded VARCHAR.
func Varchar(name string, length int) *Column {
	c := newColumn(name, "VARCHAR", FamilyString)
	if length != 0 {
		c.Length(length)
	}
	return c
}

// Char returns a CHAR(n) column builder.
func Char(name string, length int) *Column {
	c := newColumn(name, "CHAR", FamilyString)
	if length != 0 {
		c.Length(length)
	}
	return c
}

// Text returns a TEXT column builder.
func Text(name string) *Column { return newColumn(name, "TEXT", FamilyString) }

// Bytea returns a BYTEA column builder.
func Bytea(name string) *Column { return newColumn(name, "BYTEA", FamilyBinary) }

// Date and time.

// Date returns a DATE column builder.
func Date(name string) *Column { return newColumn(name, "DATE", FamilyTemporal) }

// Time returns a TIME column builder.
func Time(name string) *Column { return newColumn(name, "TIME", FamilyTemporal) }

// Timestamp returns a TIMESTAMP column builder.
func Timestamp(name string) *Column { return newColumn(name, "TIMESTAMP", FamilyTemporal) }

// Timestamptz returns a TIMESTAMP WITH TIME ZONE column builder.
func Timestamptz(name string) *Column { return Timestamp(name).WithTimezone() }

// Interval returns an INTERVAL column builder.
func Interval(name string) *Column { return newColumn(name, "INTERVAL", FamilyTemporal) }

// Scalars, documents.

// Boolean returns a BOOLEAN column builder.
func Boolean(name string) *Column { return newColumn(name, "BOOLEAN", FamilyBoolean) }

// UUID returns a UUID column builder.
func UUID(name string) *Column { return newColumn(name, "UUID", FamilyUUID) }

// JSON returns a JSON column builder.
func JSON(name string) *Column { return newColumn(name, "JSON", FamilyJSON) }

// JSONB returns a JSONB column builder.
func JSONB(name string) *Column { return newColumn(name, "JSONB", FamilyJSON) }

// XML returns an XML column builder.
func XML(name string) *Column { return newColumn(name, "XML", FamilyXML) }

// Geometric types.

// Point returns a POINT column builder.
func Point(name string) *Column { return newColumn(name, "POINT", FamilyGeometric) }

// Line returns a LINE column builder.
func Line(name string) *Column { return newColumn(name, "LINE", FamilyGeometric) }

// Lseg returns an LSEG column builder.
func Lseg(name string) *Column { return newColumn(name, "LSEG", FamilyGeometric) }

// Box returns a BOX column builder.
func Box(name string) *Column { return newColumn(name, "BOX", FamilyGeometric) }

// Path returns a PATH column builder.
func Path(name string) *Column { return newColumn(name, "PATH", FamilyGeometric) }

// Polygon returns a POLYGON column builder.
func Polygon(name string) *Column { return newColumn(name, "POLYGON", FamilyGeometric) }

// Circle returns a CIRCLE column builder.
func Circle(name string) *Column { return newColumn(name, "CIRCLE", FamilyGeometric) }

// Network types.

// Inet returns an INET column builder.
func Inet(name string) *Column { return newColumn(name, "INET", FamilyNetwork) }

// Cidr returns a CIDR column builder.
func Cidr(name string) *Column { return newColumn(name, "CIDR", FamilyNetwork) }

// Macaddr returns a MACADDR column builder.
func Macaddr(name string) *Column { return newColumn(name, "MACADDR", FamilyNetwork) }

// Macaddr8 returns a MACADDR8 column builder.
func Macaddr8(name string) *Column { return newColumn(name, "MACADDR8", FamilyNetwork) }

// Bit strings and text search.

// Bit returns a BIT(n) column builder.
func Bit(name string, length int) *Column {
	c := newColumn(name, "BIT", FamilyBit)
	if length != 0 {
		c.Length(length)
	}
	return c
}

// Varbit returns a BIT VARYING(n) column builder.
func Varbit(name string, length int) *Column {
	c := newColumn(name, "VARBIT", FamilyBit)
	if length != 0 {
		c.Length(length)
	}
	return c
}

// Tsvector returns a TSVECTOR column builder.
func Tsvector(name string) *Column { return newColumn(name, "TSVECTOR", FamilyTextSearch) }

// Tsquery returns a TSQUERY column builder.
func Tsquery(name string) *Column { return newColumn(name, "TSQUERY", FamilyTextSearch) }

// Ranges.

// Int4Range returns an INT4RANGE column builder.
func Int4Range(name string) *Column { return newColumn(name, "INT4RANGE", FamilyRange) }

// Int8Range returns an INT8RANGE column builder.
func Int8Range(name string) *Column { return newColumn(name, "INT8RANGE", FamilyRange) }

// NumRange returns a NUMRANGE column builder.
func NumRange(name string) *Column { return newColumn(name, "NUMRANGE", FamilyRange) }

// TsRange returns a TSRANGE column builder.
func TsRange(name string) *Column { return newColumn(name, "TSRANGE", FamilyRange) }

// TstzRange returns a TSTZRANGE column builder.
func TstzRange(name string) *Column { return newColumn(name, "TSTZRANGE", FamilyRange) }

// DateRange returns a DATERANGE column builder.
func DateRange(name string) *Column { return newColumn(name, "DATERANGE", FamilyRange) }

// Int4MultiRange returns an INT4MULTIRANGE column builder.
func Int4MultiRange(name string) *Column { return newColumn(name, "INT4MULTIRANGE", FamilyRange) }

// Int8MultiRange returns an INT8MULTIRANGE column builder.
func Int8MultiRange(name string) *Column { return newColumn(name, "INT8MULTIRANGE", FamilyRange) }

// NumMultiRange returns a NUMMULTIRANGE column builder.
func NumMultiRange(name string) *Column { return newColumn(name, "NUMMULTIRANGE", FamilyRange) }

// TsMultiRange returns a TSMULTIRANGE column builder.
func TsMultiRange(name string) *Column { return newColumn(name, "TSMULTIRANGE", FamilyRange) }

// TstzMultiRange returns a TSTZMULTIRANGE column builder.
func TstzMultiRange(name string) *Column { return newColumn(name, "TSTZMULTIRANGE", FamilyRange) }

// DateMultiRange returns a DATEMULTIRANGE column builder.
func DateMultiRange(name string) *Column { return newColumn(name, "DATEMULTIRANGE", FamilyRange) }

// Object identifiers.

// OID returns an OID column builder.
func OID(name string) *Column { return newColumn(name, "OID", FamilyOID) }

// RegClass returns a REGCLASS column builder.
func RegClass(name string) *Column { return newColumn(name, "REGCLASS", FamilyOID) }

// RegProc returns a REGPROC column builder.
func RegProc(name string) *Column { return newColumn(name, "REGPROC", FamilyOID) }

// RegType returns a REGTYPE column builder.
func RegType(name string) *Column { return newColumn(name, "REGTYPE", FamilyOID) }

// RegConfig returns a REGCONFIG column builder.
func RegConfig(name string) *Column { return newColumn(name, "REGCONFIG", FamilyOID) }

// Vectors (pgvector).

// Vector returns a VECTOR(n) column builder. n must be positive.
func Vector(name string, dims int) *Column { return vector(name, "VECTOR", dims, 16000) }

// HalfVec returns a HALFVEC(n) column builder.
func HalfVec(name string, dims int) *Column { return vector(name, "HALFVEC", dims, 16000) }

// SparseVec returns a SPARSEVEC(n) column builder.
func SparseVec(name string, dims int) *Column { return vector(name, "SPARSEVEC", dims, 1000000000) }

func vector(name, typ string, dims, limit int) *Column {
	c := newColumn(name, typ, FamilyVector)
	switch {
	case dims <= 0:
		c.failf("dimensions must be positive, got %d", dims)
	case dims > limit:
		c.failf("dimensions must not exceed %d, got %d", limit, dims)
	default:
		c.desc.Length = dims
	}
	return c
}

// PostGIS.

// Geometry returns a GEOMETRY(type, srid) column builder. An empty type
// yields an unconstrained GEOMETRY; a zero srid is omitted.
func Geometry(name, typ string, srid int) *Column {
	return spatial(name, "GEOMETRY", typ, srid)
}

// Geography returns a GEOGRAPHY(type, srid) column builder.
func Geography(name, typ string, srid int) *Column {
	return spatial(name, "GEOGRAPHY", typ, srid)
}

func spatial(name, base, typ string, srid int) *Column {
	c := newColumn(name, base, FamilyPostGIS)
	if srid < 0 {
		c.failf("srid must not be negative, got %d", srid)
		return c
	}
	if srid != 0 && typ == "" {
		typ = "Geometry"
	}
	if typ != "" {
		c.desc.TypeArgs = append(c.desc.TypeArgs, typ)
	}
	if srid != 0 {
		c.desc.TypeArgs = append(c.desc.TypeArgs, strconv.Itoa(srid))
	}
	return c
}

// Box2D returns a BOX2D column builder.
func Box2D(name string) *Column { return newColumn(name, "BOX2D", FamilyPostGIS) }

// Box3D returns a BOX3D column builder.
func Box3D(name string) *Column { return newColumn(name, "BOX3D", FamilyPostGIS) }

// User-defined types.

// Composite returns a column of a composite type.
func Composite(name, typeName string) *Column { return userType(name, typeName) }

// Domain returns a column of a domain type.
func Domain(name, domainName string) *Column { return userType(name, domainName) }

// Enum returns a column of an enum type.
func Enum(name, typeName string) *Column { return userType(name, typeName) }

// Custom returns a column with a verbatim type token, e.g. CITEXT.
func Custom(name, typ string) *Column { return userType(name, typ) }

func userType(name, typ string) *Column {
	c := newColumn(name, typ, FamilyUser)
	if typ == "" {
		c.fail("type name must not be empty")
	}
	return c
}

// Common default expressions.

// GenRandomUUID is the gen_random_uuid() default expression.
func GenRandomUUID() sql.RawExpr { return sql.Raw("gen_random_uuid()") }

// Now is the now() default expression.
func Now() sql.RawExpr { return sql.Raw("now()") }

// CurrentTimestamp is the CURRENT_TIMESTAMP default expression.
func CurrentTimestamp() sql.RawExpr { return sql.Raw("CURRENT_TIMESTAMP") }
