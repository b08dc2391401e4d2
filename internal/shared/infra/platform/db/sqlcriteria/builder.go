// Package sqlcriteria traduce criterios neutrales y ventanas de seek a SQL.
package sqlcriteria

import (
	"errors"
	"fmt"
	"strings"

	"github.com/davicafu/csamarket/internal/shared/domain"
	"github.com/davicafu/csamarket/internal/shared/infra/platform/query"
	"github.com/davicafu/csamarket/internal/shared/infra/utils"
)

var (
	ErrUnknownField    = errors.New("unknown criteria field")
	ErrUnknownOperator = errors.New("unknown criteria operator")
)

// Kind indica cómo se guarda una columna.
type Kind int

const (
	Scalar Kind = iota
	List        // array JSON en texto (SQLite) o JSONB (Postgres)
)

// Column asocia un campo lógico a su columna SQL.
type Column struct {
	Name string
	Kind Kind
}

// Columns es la lista blanca de campos filtrables u ordenables de una tabla.
// El id debe estar siempre presente: es el desempate de todos los órdenes.
type Columns map[string]Column

// Builder acumula argumentos mientras construye las cláusulas de una consulta.
// No es seguro para uso concurrente; se crea uno por consulta.
type Builder struct {
	dialect Dialect
	columns Columns
	args    []interface{}
}

func New(d Dialect, cols Columns) *Builder {
	return &Builder{dialect: d, columns: cols}
}

// Args devuelve los argumentos en el orden de sus marcadores.
func (b *Builder) Args() []interface{} {
	return b.args
}

func (b *Builder) bind(v interface{}) string {
	b.args = append(b.args, b.dialect.Value(v))
	return b.dialect.Placeholder(len(b.args))
}

func (b *Builder) column(field string) (Column, error) {
	col, ok := b.columns[field]
	if !ok {
		return Column{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return col, nil
}

// Where traduce las condiciones (unidas con AND) a SQL. Devuelve "" si no hay.
func (b *Builder) Where(conds []domain.Criterion) (string, error) {
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		clause, err := b.condition(c)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND "), nil
}

func (b *Builder) condition(c domain.Criterion) (string, error) {
	if c.IsGroup() {
		parts := make([]string, 0, len(c.Any))
		for _, sub := range c.Any {
			p, err := b.condition(sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}

	col, err := b.column(c.Field)
	if err != nil {
		return "", err
	}

	switch c.Op {
	case domain.OpEq, domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		expr := col.Name
		if c.Coalesce != nil {
			expr = fmt.Sprintf("COALESCE(%s, %s)", col.Name, b.bind(c.Coalesce))
		}
		return fmt.Sprintf("%s %s %s", expr, c.Op, b.bind(c.Value)), nil
	case domain.OpEqFold:
		return fmt.Sprintf("%s = %s", b.dialect.Fold(col.Name), b.dialect.Fold(b.bind(c.Value))), nil
	case domain.OpContains:
		return b.dialect.Contains(col.Name, b.bind("%"+EscapeLike(fmt.Sprint(c.Value))+"%")), nil
	case domain.OpPrefix:
		return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, col.Name, b.bind(EscapeLike(fmt.Sprint(c.Value))+"%")), nil
	case domain.OpHas:
		if col.Kind != List {
			return "", fmt.Errorf("%w: %s on scalar field %s", ErrUnknownOperator, c.Op, c.Field)
		}
		return b.dialect.ListHas(col.Name, b.bind(c.Value)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownOperator, c.Op)
	}
}

// sortExpr devuelve la expresión de orden, con COALESCE si el orden tiene fallback.
func (b *Builder) sortExpr(s query.Sort) (string, error) {
	col, err := b.column(s.Field)
	if err != nil {
		return "", err
	}
	if s.Fallback != nil {
		return fmt.Sprintf("COALESCE(%s, %s)", col.Name, b.bind(s.Fallback)), nil
	}
	return col.Name, nil
}

// SeekAfter devuelve la condición "estrictamente después del cursor" según
// el orden de seek. Devuelve "" si no hay cursor.
func (b *Builder) SeekAfter(seek query.Seek) (string, error) {
	if seek.After == nil {
		return "", nil
	}
	idCol, err := b.column("id")
	if err != nil {
		return "", err
	}
	expr, err := b.sortExpr(seek.Sort)
	if err != nil {
		return "", err
	}
	op := utils.Ternary(seek.Sort.Desc, "<", ">")
	return fmt.Sprintf("(%s, %s) %s (%s, %s)",
		expr, idCol.Name, op, b.bind(seek.SeekValue()), b.bind(seek.After.ID)), nil
}

// OrderBy devuelve la cláusula de orden con el id como desempate en la misma dirección.
func (b *Builder) OrderBy(s query.Sort) (string, error) {
	idCol, err := b.column("id")
	if err != nil {
		return "", err
	}
	expr, err := b.sortExpr(s)
	if err != nil {
		return "", err
	}
	dir := utils.Ternary(s.Desc, "DESC", "ASC")
	return fmt.Sprintf("%s %s, %s %s", expr, dir, idCol.Name, dir), nil
}

// Limit enlaza el límite como argumento.
func (b *Builder) Limit(n int) string {
	return b.bind(n)
}

// SelectPage compone una consulta completa de página: filtros, seek, orden y límite.
func (b *Builder) SelectPage(base string, criteria domain.Criteria, seek query.Seek) (string, error) {
	var conds []domain.Criterion
	if criteria != nil {
		conds = criteria.ToConditions()
	}

	where, err := b.Where(conds)
	if err != nil {
		return "", err
	}
	after, err := b.SeekAfter(seek)
	if err != nil {
		return "", err
	}

	var clauses []string
	for _, c := range []string{where, after} {
		if c != "" {
			clauses = append(clauses, c)
		}
	}

	sql := base
	if len(clauses) > 0 {
		sql += " WHERE " + strings.Join(clauses, " AND ")
	}

	order, err := b.OrderBy(seek.Sort)
	if err != nil {
		return "", err
	}
	sql += " ORDER BY " + order + " LIMIT " + b.Limit(seek.Limit)
	return sql, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapa los comodines de LIKE para buscar el texto tal cual.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
