package pg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
)

type OnDeletePolicy string

const (
	OnDeleteRestrict OnDeletePolicy = "RESTRICT"
	OnDeleteSetNull  OnDeletePolicy = "SET NULL"
	OnDeleteCascade  OnDeletePolicy = "CASCADE"
)

// DefaultSchema is used when no schema is given.
const DefaultSchema = "public"

var reserved = map[string]struct{}{ //nolint:gochecknoglobals // keyword table
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {},
}

func isReserved(s string) bool { _, ok := reserved[strings.ToLower(s)]; return ok }

// snake turns BlogPost into blog_post.
func snake(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1]) ||
				(i+1 < len(rs) && unicode.IsLower(rs[i+1]) && unicode.IsUpper(rs[i-1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// naive pluralization, enough for users, posts, categories
func plural(s string) string {
	switch {
	case strings.HasSuffix(s, "s"):
		return s
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

// TableName is the table a model is stored in.
func TableName(model string) string {
	t := plural(snake(model))
	if isReserved(t) {
		t = "e_" + t
	}
	return t
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(strings.ToLower(s), `"`, `""`) + `"`
}

func mapType(f dsl.Field) (string, error) {
	switch f.Type {
	case dsl.TypeString:
		return "varchar(255)", nil
	case dsl.TypeText:
		return "text", nil
	case dsl.TypeURL:
		return "varchar(2048)", nil
	case dsl.TypeEmail:
		return "varchar(254)", nil
	case dsl.TypeInteger:
		return "bigint", nil
	case dsl.TypeFloat:
		return "double precision", nil
	case dsl.TypeBoolean:
		return "boolean", nil
	case dsl.TypeDateTime:
		return "timestamp with time zone", nil
	case dsl.TypeDate:
		return "date", nil
	case dsl.TypeUUID:
		return "uuid", nil
	case dsl.TypeJSON:
		return "jsonb", nil
	default:
		return "", nesterrors.Wrapf(nesterrors.ErrInvalidFieldType, "%q", f.Type)
	}
}

func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return "'" + strings.ReplaceAll(string(b), "'", "''") + "'", nil
	}
}

func primaryKey(m dsl.Model) (dsl.Field, bool) {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return dsl.Field{}, false
}

// Phase is an ordered group of statements. Phases run in order so foreign
// keys are added after every table exists.
type Phase struct {
	Name       string   `json:"name"`
	Statements []string `json:"statements"`
}

// DDL is the schema for a specification's models.
type DDL struct {
	Schema string  `json:"schema"`
	Phases []Phase `json:"phases"`
}

// Script renders the DDL as one SQL script.
func (d DDL) Script() string {
	var b strings.Builder
	for _, p := range d.Phases {
		fmt.Fprintf(&b, "-- %s\n", p.Name)
		for _, s := range p.Statements {
			b.WriteString(s)
			b.WriteString(";\n")
		}
	}
	return b.String()
}

// Statements flattens the phases.
func (d DDL) Statements() []string {
	var out []string
	for _, p := range d.Phases {
		out = append(out, p.Statements...)
	}
	return out
}

type fkStmt struct {
	table, name, col, refTable, refCol string
	onDelete                           OnDeletePolicy
}

type generator struct {
	schema string
	byName map[string]dsl.Model
	tables []string
	fks    []fkStmt
}

// GenerateDDL renders CREATE statements for every model: one table per
// model, a join table per many_to_many field, and foreign keys last.
// Statements are idempotent except the foreign keys, which ApplyDDL skips
// when they already exist.
func GenerateDDL(spec dsl.Specification, schema string) (DDL, error) {
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}
	models := spec.Models()
	g := &generator{schema: schema, byName: make(map[string]dsl.Model, len(models))}
	for _, m := range models {
		g.byName[m.Name] = m
	}

	g.tables = append(g.tables, "create schema if not exists "+sqlIdent(schema))
	for _, m := range models {
		if err := g.model(m); err != nil {
			return DDL{}, err
		}
	}

	fkPhase := Phase{Name: "foreign_keys"}
	for _, fk := range g.fks {
		fkPhase.Statements = append(fkPhase.Statements, fmt.Sprintf(
			"alter table %s add constraint %s foreign key (%s) references %s(%s) on delete %s",
			g.fqn(fk.table), sqlIdent(fk.name), sqlIdent(fk.col),
			g.fqn(fk.refTable), sqlIdent(fk.refCol), fk.onDelete))
	}

	d := DDL{Schema: schema, Phases: []Phase{{Name: "schemas_and_tables", Statements: g.tables}}}
	if len(fkPhase.Statements) > 0 {
		d.Phases = append(d.Phases, fkPhase)
	}
	return d, nil
}

func (g *generator) fqn(table string) string {
	return sqlIdent(g.schema) + "." + sqlIdent(table)
}

func (g *generator) target(m dsl.Model, f dsl.Field) (dsl.Model, dsl.Field, error) {
	if f.Model == "" {
		return dsl.Model{}, dsl.Field{}, nesterrors.Wrapf(nesterrors.ErrSchema,
			"%s.%s: relation has no target model", m.Name, f.Name)
	}
	t, ok := g.byName[f.Model]
	if !ok {
		return dsl.Model{}, dsl.Field{}, nesterrors.Wrapf(nesterrors.ErrSchema,
			"%s.%s: target model %q is not declared", m.Name, f.Name, f.Model)
	}
	pk, ok := primaryKey(t)
	if !ok {
		return dsl.Model{}, dsl.Field{}, nesterrors.Wrapf(nesterrors.ErrSchema,
			"%s.%s: target model %q has no primary key", m.Name, f.Name, f.Model)
	}
	return t, pk, nil
}

func (g *generator) model(m dsl.Model) error {
	tbl := TableName(m.Name)
	var cols []string
	var uniques []string
	seen := map[string]struct{}{}

	for _, f := range m.Fields {
		if f.Type == dsl.TypeManyToMany {
			if err := g.joinTable(m, f); err != nil {
				return err
			}
			continue
		}
		lower := strings.ToLower(f.Name)
		if _, dup := seen[lower]; dup {
			return nesterrors.Wrapf(nesterrors.ErrSchema, "%s: column %q declared twice", m.Name, f.Name)
		}
		seen[lower] = struct{}{}

		col, err := g.column(m, f)
		if err != nil {
			return err
		}
		cols = append(cols, col)
		if f.Unique && !f.PrimaryKey {
			uniques = append(uniques, fmt.Sprintf("create unique index if not exists %s on %s(%s)",
				sqlIdent(tbl+"_"+lower+"_uq"), g.fqn(tbl), sqlIdent(f.Name)))
		}
	}

	g.tables = append(g.tables, fmt.Sprintf("create table if not exists %s (\n  %s\n)",
		g.fqn(tbl), strings.Join(cols, ",\n  ")))
	g.tables = append(g.tables, uniques...)
	return nil
}

func (g *generator) column(m dsl.Model, f dsl.Field) (string, error) {
	var typ string
	if f.Type == dsl.TypeForeignKey {
		t, pk, err := g.target(m, f)
		if err != nil {
			return "", err
		}
		if typ, err = mapType(pk); err != nil {
			return "", err
		}
		policy := OnDeleteSetNull
		if f.Required {
			policy = OnDeleteRestrict
		}
		g.fks = append(g.fks, fkStmt{
			table:    TableName(m.Name),
			name:     TableName(m.Name) + "_" + strings.ToLower(f.Name) + "_fk",
			col:      f.Name,
			refTable: TableName(t.Name),
			refCol:   pk.Name,
			onDelete: policy,
		})
	} else {
		var err error
		if typ, err = mapType(f); err != nil {
			return "", nesterrors.Wrapf(err, "%s.%s", m.Name, f.Name)
		}
	}

	parts := []string{sqlIdent(f.Name), typ}
	switch {
	case f.PrimaryKey:
		parts = append(parts, "primary key")
		if f.AutoGenerated {
			switch f.Type {
			case dsl.TypeUUID:
				parts = append(parts, "default gen_random_uuid()")
			case dsl.TypeInteger:
				parts = append(parts, "generated by default as identity")
			}
		}
	case f.Required:
		parts = append(parts, "not null")
	}
	if f.AutoGenerated && !f.PrimaryKey && (f.Type == dsl.TypeDateTime || f.Type == dsl.TypeDate) {
		parts = append(parts, "default now()")
	}
	if f.HasDefault {
		lit, err := literal(f.Default)
		if err != nil {
			return "", nesterrors.Wrapf(nesterrors.ErrSchema, "%s.%s: default: %v", m.Name, f.Name, err)
		}
		parts = append(parts, "default "+lit)
	}
	return strings.Join(parts, " "), nil
}

func (g *generator) joinTable(m dsl.Model, f dsl.Field) error {
	own, ok := primaryKey(m)
	if !ok {
		return nesterrors.Wrapf(nesterrors.ErrSchema, "%s.%s: model has no primary key", m.Name, f.Name)
	}
	t, pk, err := g.target(m, f)
	if err != nil {
		return err
	}
	ownType, err := mapType(own)
	if err != nil {
		return err
	}
	refType, err := mapType(pk)
	if err != nil {
		return err
	}

	tbl := snake(m.Name) + "_" + strings.ToLower(f.Name)
	left := snake(m.Name) + "_id"
	right := snake(t.Name) + "_id"
	if right == left {
		right = "related_" + right
	}
	g.tables = append(g.tables, fmt.Sprintf(
		"create table if not exists %s (\n  %s %s not null,\n  %s %s not null,\n  primary key (%s, %s)\n)",
		g.fqn(tbl), sqlIdent(left), ownType, sqlIdent(right), refType, sqlIdent(left), sqlIdent(right)))
	g.fks = append(g.fks,
		fkStmt{table: tbl, name: tbl + "_" + left + "_fk", col: left,
			refTable: TableName(m.Name), refCol: own.Name, onDelete: OnDeleteCascade},
		fkStmt{table: tbl, name: tbl + "_" + right + "_fk", col: right,
			refTable: TableName(t.Name), refCol: pk.Name, onDelete: OnDeleteCascade},
	)
	return nil
}
