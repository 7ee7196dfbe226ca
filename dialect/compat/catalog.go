package compat

import (
	"regexp"
	"strings"

	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/schema/field"
)

// Feature is a schema construct a catalog may reject or flag.
type Feature string

// Schema features checked on the model.
const (
	FeatureArray           Feature = "array"
	FeatureNestedArray     Feature = "nested-array"
	FeatureIdentity        Feature = "identity"
	FeatureForeignKey      Feature = "foreign-key"
	FeatureDeferrable      Feature = "deferrable"
	FeaturePartition       Feature = "partition"
	FeatureTemporary       Feature = "temporary"
	FeatureUnlogged        Feature = "unlogged"
	FeaturePartialIndex    Feature = "partial-index"
	FeatureExpressionIndex Feature = "expression-index"
	FeatureTrigger         Feature = "trigger"
	FeatureSequence        Feature = "sequence"
	FeatureDomain          Feature = "domain"
	FeatureComposite       Feature = "composite"
	FeatureEnum            Feature = "enum"
	FeatureExtension       Feature = "extension"
	FeatureCollation       Feature = "collation"
	FeatureLanguage        Feature = "language"
)

// typeRule matches column types, by regexp over the type fragment of a
// column declaration and by canonical type token on the model.
type typeRule struct {
	code    string
	pattern *regexp.Regexp
}

// sqlRule matches raw SQL. Matches also matching except are ignored.
type sqlRule struct {
	code    string
	pattern *regexp.Regexp
	except  *regexp.Regexp
}

// Tenancy configures tenant-aware structural rules.
type Tenancy struct {
	// Column is the tenant key column, e.g. tenant_id.
	Column string
	// Builtin lists the tables owned by the platform.
	Builtin []string
}

// Catalog is the rule table of a dialect. Catalogs returned by CatalogFor
// are shared and must not be modified; build custom ones with NewCatalog.
type Catalog struct {
	Dialect string

	rules     map[string]*Rule
	order     []string
	types     []typeRule
	tokens    map[string]string
	families  map[field.Family]string
	features  map[Feature]string
	methods   map[string]string
	languages map[string]bool
	langs     map[string]string
	sql       []sqlRule
	tenancy   *Tenancy
	grammar   string
}

// NewCatalog returns an empty catalog for the dialect.
func NewCatalog(dialectName string) *Catalog {
	return &Catalog{
		Dialect:  dialectName,
		rules:    make(map[string]*Rule),
		tokens:   make(map[string]string),
		families: make(map[field.Family]string),
		features: make(map[Feature]string),
		methods:  make(map[string]string),
		langs:    make(map[string]string),
	}
}

// Add registers rules. A rule with a known code replaces the previous one.
func (c *Catalog) Add(rules ...*Rule) *Catalog {
	for _, r := range rules {
		if _, ok := c.rules[r.Code]; !ok {
			c.order = append(c.order, r.Code)
		}
		c.rules[r.Code] = r
	}
	return c
}

// Lookup returns a copy of the rule with the code.
func (c *Catalog) Lookup(code string) (*Rule, bool) {
	r, ok := c.rules[code]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Rules returns copies of the rules in registration order.
func (c *Catalog) Rules() []*Rule {
	rules := make([]*Rule, 0, len(c.order))
	for _, code := range c.order {
		rules = append(rules, c.rules[code].clone())
	}
	return rules
}

// TypeRule returns the rule matching a column type such as "jsonb",
// "SERIAL" or "int4range".
func (c *Catalog) TypeRule(typ string) (*Rule, bool) {
	t := strings.TrimSpace(typ)
	if code, ok := c.tokens[strings.ToUpper(t)]; ok {
		return c.Lookup(code)
	}
	for _, tr := range c.types {
		if tr.pattern.MatchString(t) {
			return c.Lookup(tr.code)
		}
	}
	return nil, false
}

// FeatureRule returns the rule a schema feature maps to.
func (c *Catalog) FeatureRule(f Feature) (*Rule, bool) {
	code, ok := c.features[f]
	if !ok {
		return nil, false
	}
	return c.Lookup(code)
}

// MatchTypes maps column types to a rule. Tokens are canonical type names
// such as SERIAL or TIMESTAMP WITH TIME ZONE. The pattern is matched
// against the type of column declarations in raw DDL; when empty it is
// derived from the tokens. It panics if the pattern does not compile.
//
//	c.MatchTypes("SERIAL", "", "SERIAL", "SMALLSERIAL", "BIGSERIAL")
func (c *Catalog) MatchTypes(code, pattern string, tokens ...string) *Catalog {
	for _, t := range tokens {
		c.tokens[strings.ToUpper(t)] = code
	}
	if pattern == "" {
		pattern = tokenPattern(tokens)
	}
	c.types = append(c.types, typeRule{code: code, pattern: regexp.MustCompile("(?i)" + pattern)})
	return c
}

// MatchFamilies maps whole type families to a rule.
func (c *Catalog) MatchFamilies(code string, families ...field.Family) *Catalog {
	var tokens []string
	for _, f := range families {
		c.families[f] = code
		tokens = append(tokens, field.TypesOf(f)...)
	}
	if len(tokens) > 0 {
		c.types = append(c.types, typeRule{code: code, pattern: regexp.MustCompile("(?i)" + tokenPattern(tokens))})
	}
	return c
}

// MatchFeature maps a schema feature to a rule.
func (c *Catalog) MatchFeature(code string, features ...Feature) *Catalog {
	for _, f := range features {
		c.features[f] = code
	}
	return c
}

// MatchIndexMethods maps index access methods, e.g. gist, to a rule.
func (c *Catalog) MatchIndexMethods(code string, methods ...string) *Catalog {
	for _, m := range methods {
		c.methods[strings.ToLower(m)] = code
	}
	return c
}

// AllowLanguages restricts function languages. Other languages are
// reported under the FeatureLanguage rule.
func (c *Catalog) AllowLanguages(languages ...string) *Catalog {
	if c.languages == nil {
		c.languages = make(map[string]bool)
	}
	for _, l := range languages {
		c.languages[strings.ToLower(l)] = true
	}
	return c
}

// MatchLanguages maps function languages to a rule. It takes precedence
// over AllowLanguages, so a language may be allowed and still flagged.
func (c *Catalog) MatchLanguages(code string, languages ...string) *Catalog {
	for _, l := range languages {
		c.langs[strings.ToLower(l)] = code
	}
	return c
}

// MatchSQL maps a case-insensitive pattern over raw SQL to a rule. Matches
// that also match except, when not empty, are ignored. It panics if a
// pattern does not compile.
func (c *Catalog) MatchSQL(code, pattern, except string) *Catalog {
	r := sqlRule{code: code, pattern: regexp.MustCompile("(?i)" + pattern)}
	if except != "" {
		r.except = regexp.MustCompile("(?i)" + except)
	}
	c.sql = append(c.sql, r)
	return c
}

// WithTenancy enables the tenant-aware structural rules.
func (c *Catalog) WithTenancy(t Tenancy) *Catalog {
	c.tenancy = &t
	return c
}

// CheckGrammar parses raw SQL with the CockroachDB grammar and reports
// parse failures under the rule code.
func (c *Catalog) CheckGrammar(code string) *Catalog {
	c.grammar = code
	return c
}

// tokenPattern builds an anchored alternation of type tokens.
func tokenPattern(tokens []string) string {
	alts := make([]string, len(tokens))
	for i, t := range tokens {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`)
	}
	return `^(?:` + strings.Join(alts, "|") + `)\b`
}

// catalogs holds the built-in catalogs, keyed by dialect name.
var catalogs = map[string]*Catalog{
	dialect.DSQL:    dsqlCatalog(),
	dialect.CRDB:    crdbCatalog(),
	dialect.Nile:    nileCatalog(),
	dialect.MySQL:   mysqlCatalog(dialect.MySQL),
	dialect.MariaDB: mysqlCatalog(dialect.MariaDB),
}

// CatalogFor returns the built-in catalog of a dialect. Dialects without
// restrictions (Postgres, SQLite, Turso) have none.
func CatalogFor(dialectName string) (*Catalog, bool) {
	name, ok := dialect.Normalize(dialectName)
	if !ok {
		return nil, false
	}
	c, ok := catalogs[name]
	return c, ok
}
