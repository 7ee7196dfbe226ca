package gen

import (
	"sort"
	"strings"

	"github.com/go-openapi/inflect"
)

// function maps a Postgres function to the expression DSL. A function
// with a method is emitted as that sqlcond method when one of its
// signatures matches the call; otherwise, and for functions without a
// method, it is emitted through sqlcond.Fn under its SQL name.
type function struct {
	name   string
	method string
	sigs   []string
}

// Signature letters, one per argument:
//
//	r  receiver: the argument becomes the receiver of the method
//	a  any expression
//	i  integer literal
//	s  string literal
//	*  zero or more trailing expressions
//
// Signatures without r are package-level sqlcond functions.
const (
	sigRecv     = 'r'
	sigAny      = 'a'
	sigInt      = 'i'
	sigString   = 's'
	sigVariadic = '*'
)

// methodNames overrides the camel-cased function name where the DSL
// spells it differently.
var methodNames = map[string]string{
	"md5":              "MD5",
	"nullif":           "NullIf",
	"plainto_tsquery":  "PlainToTsquery",
	"concat_ws":        "ConcatWS",
	"gen_random_uuid":  "GenRandomUUID",
	"ceiling":          "Ceil",
	"substr":           "Substring",
	"char_length":      "Length",
	"character_length": "Length",
	"btrim":            "Trim",
}

// methodName returns the DSL method of a function name, e.g.
// array_length is ArrayLength.
func methodName(name string) string {
	if m, ok := methodNames[name]; ok {
		return m
	}
	return inflect.Camelize(name)
}

// chain declares a function whose receiver argument becomes the
// receiver of the DSL method.
func chain(name string, sigs ...string) function {
	if len(sigs) == 0 {
		sigs = []string{"r"}
	}
	return function{name: name, method: methodName(name), sigs: sigs}
}

// call declares a function emitted as a package-level DSL function.
func call(name string, sigs ...string) function {
	return function{name: name, method: methodName(name), sigs: sigs}
}

var dslFunctions = []function{
	// Strings.
	chain("lower"),
	chain("upper"),
	chain("length"),
	chain("char_length"),
	chain("character_length"),
	chain("trim"),
	chain("btrim"),
	chain("ltrim"),
	chain("rtrim"),
	chain("replace", "raa"),
	chain("left", "ri"),
	chain("right", "ri"),
	chain("reverse"),
	chain("md5"),
	chain("substring", "rii"),
	chain("substr", "rii"),
	call("concat", "*"),
	call("concat_ws", "s*"),
	// Numbers.
	chain("abs"),
	chain("round", "r", "ri"),
	chain("floor"),
	chain("ceil"),
	chain("ceiling"),
	chain("sqrt"),
	// Conditionals.
	chain("nullif", "ra"),
	call("coalesce", "*"),
	call("greatest", "*"),
	call("least", "*"),
	// Arrays.
	chain("array_length", "ri"),
	chain("cardinality"),
	chain("array_append", "ra"),
	chain("array_to_string", "rs"),
	// Text search. The optional configuration comes first in SQL.
	chain("to_tsvector", "r", "sr"),
	chain("to_tsquery", "r", "sr"),
	chain("plainto_tsquery", "r", "sr"),
	chain("websearch_to_tsquery", "r", "sr"),
	chain("ts_rank", "ra"),
	// Date and time.
	chain("date_trunc", "sr"),
	chain("extract", "sr"),
	call("now", ""),
	// Identifiers.
	call("gen_random_uuid", ""),
}

// sqlFunctions are well-known functions without a dedicated DSL method.
var sqlFunctions = []string{
	// Strings.
	"ascii", "bit_length", "chr", "initcap", "lpad", "rpad", "octet_length",
	"overlay", "position", "quote_ident", "quote_literal", "quote_nullable",
	"regexp_match", "regexp_matches", "regexp_replace", "regexp_split_to_array",
	"regexp_count", "regexp_instr", "regexp_like", "regexp_substr", "repeat",
	"split_part", "starts_with", "strpos", "to_ascii", "to_hex", "translate",
	"format", "normalize", "encode", "decode", "sha224", "sha256", "sha384",
	"sha512", "string_to_array", "convert", "convert_from", "convert_to",
	"parse_ident", "unaccent", "casefold",
	// Numbers.
	"cbrt", "degrees", "radians", "div", "exp", "ln", "log", "log10", "mod",
	"pi", "power", "pow", "sign", "trunc", "width_bucket", "random", "acos",
	"asin", "atan", "atan2", "cos", "cot", "sin", "tan", "sinh", "cosh",
	"tanh", "gcd", "lcm", "factorial", "scale", "min_scale", "trim_scale",
	// Date and time.
	"age", "clock_timestamp", "date_part", "date_bin", "isfinite",
	"justify_days", "justify_hours", "justify_interval", "make_date",
	"make_interval", "make_time", "make_timestamp", "make_timestamptz",
	"statement_timestamp", "transaction_timestamp", "to_timestamp", "to_date",
	"to_char", "to_number", "timezone",
	// JSON.
	"to_json", "to_jsonb", "array_to_json", "row_to_json", "json_build_array",
	"jsonb_build_array", "json_build_object", "jsonb_build_object",
	"json_object", "jsonb_object", "json_array_length", "jsonb_array_length",
	"json_extract_path", "jsonb_extract_path", "json_extract_path_text",
	"jsonb_extract_path_text", "json_typeof", "jsonb_typeof", "jsonb_set",
	"jsonb_set_lax", "jsonb_insert", "json_strip_nulls", "jsonb_strip_nulls",
	"jsonb_pretty", "jsonb_path_query_first", "jsonb_path_exists",
	"jsonb_path_match", "json_scalar", "json_serialize",
	// Arrays.
	"array_cat", "array_dims", "array_fill", "array_lower", "array_upper",
	"array_ndims", "array_position", "array_positions", "array_prepend",
	"array_remove", "array_replace", "trim_array", "array_sample",
	"array_shuffle",
	// Identifiers.
	"uuid_generate_v1", "uuid_generate_v4", "uuidv4", "uuidv7",
	"uuid_extract_timestamp", "uuid_extract_version",
	// Text search.
	"setweight", "ts_headline", "ts_rank_cd", "tsvector_to_array", "strip",
	"numnode", "querytree", "phraseto_tsquery", "array_to_tsvector",
	"ts_delete", "ts_filter",
	// Network.
	"host", "hostmask", "masklen", "netmask", "network", "set_masklen",
	"abbrev", "broadcast", "family", "inet_merge", "inet_same_family",
	"text",
	// Ranges.
	"lower_inc", "upper_inc", "lower_inf", "upper_inf", "isempty",
	"range_merge", "int4range", "int8range", "numrange", "tsrange",
	"tstzrange", "daterange", "multirange",
	// Geometry.
	"area", "center", "diameter", "height", "width", "npoints", "pclose",
	"popen", "radius", "point", "box", "circle", "polygon", "path", "lseg",
	"line", "isclosed", "isopen",
	// PostGIS.
	"st_area", "st_asgeojson", "st_astext", "st_buffer", "st_centroid",
	"st_contains", "st_distance", "st_dwithin", "st_geomfromtext",
	"st_geogfromtext", "st_intersects", "st_length", "st_makepoint",
	"st_setsrid", "st_transform", "st_x", "st_y", "st_within", "st_srid",
	"st_geomfromgeojson", "st_makeenvelope", "st_point",
	// Vectors.
	"l2_distance", "l1_distance", "cosine_distance", "inner_product",
	"vector_dims", "vector_norm", "l2_normalize", "binary_quantize",
	"subvector",
	// Aggregates and misc.
	"count", "sum", "avg", "min", "max", "string_agg", "array_agg",
	"bool_and", "bool_or", "num_nonnulls", "num_nulls", "pg_typeof",
	"hashtext", "crc32",
}

// registry holds the known functions by lower-case name.
var registry = func() map[string]function {
	m := make(map[string]function, len(dslFunctions)+len(sqlFunctions))
	for _, name := range sqlFunctions {
		m[name] = function{name: name}
	}
	for _, f := range dslFunctions {
		m[f.name] = f
	}
	return m
}()

// Functions returns the names of the functions the transpiler knows,
// sorted.
func Functions() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupFunction returns the registered function of a possibly
// schema-qualified name. Only pg_catalog and public qualify builtins.
func lookupFunction(parts []string) (function, bool) {
	if len(parts) == 0 {
		return function{}, false
	}
	name := strings.ToLower(parts[len(parts)-1])
	if len(parts) > 1 {
		if s := strings.ToLower(parts[len(parts)-2]); s != "pg_catalog" && s != "public" {
			return function{}, false
		}
	}
	f, ok := registry[name]
	return f, ok
}

// match returns the receiver index and whether sig accepts args. The
// receiver index is -1 for package-level functions.
func match(sig string, args []value) (int, bool) {
	recv := strings.IndexByte(sig, sigRecv)
	fixed := sig
	variadic := strings.HasSuffix(sig, string(sigVariadic))
	if variadic {
		fixed = sig[:len(sig)-1]
	}
	if len(args) < len(fixed) || (!variadic && len(args) != len(fixed)) {
		return 0, false
	}
	for i, k := range []byte(fixed) {
		switch k {
		case sigInt:
			if _, ok := args[i].lit.(int); !ok || !args[i].isLit {
				return 0, false
			}
		case sigString:
			if _, ok := args[i].lit.(string); !ok || !args[i].isLit {
				return 0, false
			}
		}
	}
	return recv, true
}
