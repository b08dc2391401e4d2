package sqlite

import (
	"database/sql/driver"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"

	"github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlcriteria"
)

// El driver solo expone las funciones a conexiones abiertas después del registro.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqlcriteria.FoldFunc, 1, casefold)
}

// casefold pliega mayúsculas con las reglas Unicode, no solo ASCII.
func casefold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return Fold(v), nil
	case []byte:
		return Fold(string(v)), nil
	default:
		// NULL y números pasan tal cual
		return v, nil
	}
}

// Fold es el plegado que aplica casefold. Un Caser no se comparte entre goroutines.
func Fold(s string) string {
	return cases.Fold().String(s)
}
