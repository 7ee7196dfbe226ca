package field

import (
	"slices"
	"strconv"
	"strings"
)

// canonicalTypes maps catalog spellings to the type tokens used by the
// builders.
var canonicalTypes = map[string]string{
	"INT":                         "INTEGER",
	"INT2":                        "SMALLINT",
	"INT4":                        "INTEGER",
	"INT8":                        "BIGINT",
	"FLOAT4":                      "REAL",
	"FLOAT8":                      "DOUBLE PRECISION",
	"DOUBLE":                      "DOUBLE PRECISION",
	"BOOL":                        "BOOLEAN",
	"CHARACTER VARYING":           "VARCHAR",
	"CHARACTER":                   "CHAR",
	"BPCHAR":                      "CHAR",
	"BIT VARYING":                 "VARBIT",
	"TIMESTAMP WITHOUT TIME ZONE": "TIMESTAMP",
	"TIME WITHOUT TIME ZONE":      "TIME",
	"TIMESTAMPTZ":                 "TIMESTAMP WITH TIME ZONE",
	"TIMETZ":                      "TIME WITH TIME ZONE",
	"DATETIME":                    "TIMESTAMP",
	"DEC":                         "DECIMAL",
	"FIXED":                       "DECIMAL",
	"BLOB":                        "BYTEA",
	"LONGBLOB":                    "BYTEA",
	"MEDIUMBLOB":                  "BYTEA",
	"TINYBLOB":                    "BYTEA",
	"VARBINARY":                   "BYTEA",
	"BINARY":                      "BYTEA",
	"LONGTEXT":                    "TEXT",
	"MEDIUMTEXT":                  "TEXT",
	"TINYTEXT":                    "TEXT",
	"TINYINT":                     "SMALLINT",
	"MEDIUMINT":                   "INTEGER",
}

var families = map[string]Family{
	"SMALLINT": FamilyInteger, "INTEGER": FamilyInteger, "BIGINT": FamilyInteger,
	"SERIAL": FamilySerial, "SMALLSERIAL": FamilySerial, "BIGSERIAL": FamilySerial,
	"DECIMAL": FamilyNumeric, "NUMERIC": FamilyNumeric,
	"REAL": FamilyFloat, "DOUBLE PRECISION": FamilyFloat, "FLOAT": FamilyFloat,
	"MONEY":   FamilyMoney,
	"VARCHAR": FamilyString, "CHAR": FamilyString, "TEXT": FamilyString,
	"BYTEA": FamilyBinary,
	"DATE":  FamilyTemporal, "TIME": FamilyTemporal, "TIMESTAMP": FamilyTemporal, "INTERVAL": FamilyTemporal, "YEAR": FamilyTemporal,
	"BOOLEAN": FamilyBoolean,
	"UUID":    FamilyUUID,
	"JSON":    FamilyJSON, "JSONB": FamilyJSON,
	"XML":   FamilyXML,
	"POINT": FamilyGeometric, "LINE": FamilyGeometric, "LSEG": FamilyGeometric, "BOX": FamilyGeometric,
	"PATH": FamilyGeometric, "POLYGON": FamilyGeometric, "CIRCLE": FamilyGeometric,
	"INET": FamilyNetwork, "CIDR": FamilyNetwork, "MACADDR": FamilyNetwork, "MACADDR8": FamilyNetwork,
	"BIT": FamilyBit, "VARBIT": FamilyBit,
	"TSVECTOR": FamilyTextSearch, "TSQUERY": FamilyTextSearch,
	"INT4RANGE": FamilyRange, "INT8RANGE": FamilyRange, "NUMRANGE": FamilyRange, "TSRANGE": FamilyRange,
	"TSTZRANGE": FamilyRange, "DATERANGE": FamilyRange, "INT4MULTIRANGE": FamilyRange, "INT8MULTIRANGE": FamilyRange,
	"NUMMULTIRANGE": FamilyRange, "TSMULTIRANGE": FamilyRange, "TSTZMULTIRANGE": FamilyRange, "DATEMULTIRANGE": FamilyRange,
	"OID": FamilyOID, "REGCLASS": FamilyOID, "REGPROC": FamilyOID, "REGTYPE": FamilyOID, "REGCONFIG": FamilyOID,
	"VECTOR": FamilyVector, "HALFVEC": FamilyVector, "SPARSEVEC": FamilyVector,
	"GEOMETRY": FamilyPostGIS, "GEOGRAPHY": FamilyPostGIS, "BOX2D": FamilyPostGIS, "BOX3D": FamilyPostGIS,
}

// FamilyOf returns the family of a type token, or FamilyUser for types the
// builders do not know, such as enums, domains and composites.
func FamilyOf(typ string) Family {
	if f, ok := families[strings.ToUpper(typ)]; ok {
		return f
	}
	return FamilyUser
}

// TypesOf returns the type tokens of a family, sorted.
func TypesOf(f Family) []string {
	var types []string
	for t, tf := range families {
		if tf == f {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	return types
}

// lengthTypes take their single type argument as a length.
var lengthTypes = map[string]bool{
	"VARCHAR": true, "CHAR": true, "BIT": true, "VARBIT": true,
	"VECTOR": true, "HALFVEC": true, "SPARSEVEC": true,
}

// ParseType builds a column descriptor from a type as reported by a
// database catalog, e.g. "character varying(255)", "numeric(10,2)",
// "timestamp(3) with time zone" or "integer[]". Unknown types are kept
// verbatim in the FamilyUser family.
func ParseType(name, sqlType string) *Descriptor {
	d := &Descriptor{Name: name}
	typ := strings.TrimSpace(sqlType)
	for strings.HasSuffix(typ, "[]") {
		d.ArrayDims++
		typ = strings.TrimSpace(strings.TrimSuffix(typ, "[]"))
	}
	var args string
	if i := strings.IndexByte(typ, '('); i >= 0 {
		if j := strings.IndexByte(typ[i:], ')'); j > 0 {
			args = typ[i+1 : i+j]
			typ = strings.TrimSpace(typ[:i] + typ[i+j+1:])
		}
	}
	upper := strings.Join(strings.Fields(strings.ToUpper(typ)), " ")
	upper = strings.TrimSuffix(upper, " UNSIGNED")
	if c, ok := canonicalTypes[upper]; ok {
		upper = c
	}
	if base, ok := strings.CutSuffix(upper, " WITH TIME ZONE"); ok {
		d.Timezone = true
		upper = base
	}
	d.Family = FamilyOf(upper)
	d.Type = upper
	if d.Family == FamilyUser {
		d.Type = strings.TrimSpace(typ)
	}
	if args == "" {
		return d
	}
	parts := strings.Split(args, ",")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			nums = nil
			break
		}
		nums = append(nums, n)
	}
	switch {
	case d.Family.Integer():
		// MySQL display width.
	case len(nums) == 1 && lengthTypes[d.Type]:
		d.Length = nums[0]
	case len(nums) == 1 && (d.Family == FamilyNumeric || d.Family == FamilyTemporal || d.Family == FamilyFloat):
		d.Precision = &nums[0]
	case len(nums) == 2 && d.Family == FamilyNumeric:
		d.Precision, d.Scale = &nums[0], &nums[1]
	default:
		for _, p := range parts {
			d.TypeArgs = append(d.TypeArgs, strings.TrimSpace(p))
		}
	}
	return d
}
