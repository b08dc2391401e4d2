package sqlcriteria

import (
	"fmt"
	"time"
)

// SQLiteTimeLayout guarda los instantes como texto de ancho fijo en UTC, de
// modo que el orden lexicográfico coincide con el cronológico.
const SQLiteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect encapsula lo que cambia entre motores SQL.
type Dialect interface {
	// Placeholder devuelve el marcador del argumento n (empezando en 1).
	Placeholder(n int) string
	// Contains compara una columna de texto con un patrón LIKE sin distinguir mayúsculas.
	Contains(col, ph string) string
	// Fold normaliza mayúsculas de una expresión para comparar sin distinguirlas.
	Fold(expr string) string
	// ListHas comprueba si una columna con un array JSON contiene el valor.
	ListHas(col, ph string) string
	// Value adapta un argumento Go al formato que guarda el motor.
	Value(v interface{}) interface{}
}

// ---------- SQLite ----------

type sqliteDialect struct{}

// SQLite es el dialecto de modernc.org/sqlite.
var SQLite Dialect = sqliteDialect{}

// FoldFunc es la función SQL que registra el paquete platform/db/sqlite sobre
// el driver de modernc. El lower() nativo de SQLite solo pliega ASCII.
const FoldFunc = "casefold"

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Fold(expr string) string { return FoldFunc + "(" + expr + ")" }

func (d sqliteDialect) Contains(col, ph string) string {
	return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, d.Fold(col), d.Fold(ph))
}

func (d sqliteDialect) ListHas(col, ph string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM json_each(%s) WHERE %s = %s)`, col, d.Fold("json_each.value"), d.Fold(ph))
}

func (sqliteDialect) Value(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		return FormatSQLiteTime(x)
	case bool:
		// los booleanos se guardan como INTEGER 0/1
		if x {
			return 1
		}
		return 0
	}
	return v
}

// FormatSQLiteTime formatea un instante con SQLiteTimeLayout.
func FormatSQLiteTime(t time.Time) string {
	return t.UTC().Format(SQLiteTimeLayout)
}

// ParseSQLiteTime es la inversa de FormatSQLiteTime.
func ParseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(SQLiteTimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ---------- Postgres ----------

type postgresDialect struct{}

// Postgres es el dialecto de pgx (stdlib).
var Postgres Dialect = postgresDialect{}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) Fold(expr string) string { return "lower(" + expr + ")" }

func (postgresDialect) Contains(col, ph string) string {
	return fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, col, ph)
}

func (postgresDialect) ListHas(col, ph string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM jsonb_array_elements_text(%s) AS e(v) WHERE lower(e.v) = lower(%s))`, col, ph)
}

func (postgresDialect) Value(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}
