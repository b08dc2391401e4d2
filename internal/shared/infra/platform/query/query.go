package query

// ---------- Tipos de ordenamiento / paginación por seek ----------

// FieldCreatedAt es el campo del orden canónico (created_at DESC, id DESC).
const FieldCreatedAt = "created_at"

// Sort indica campo y dirección. El id actúa siempre como desempate en la
// misma dirección, de modo que (campo, id) define un orden total.
type Sort struct {
	Key      string      // nombre público del orden, ej. "rating"; "" para el canónico
	Field    string      // ej. "created_at", "name", "rating"
	Desc     bool
	Fallback interface{} // valor asumido cuando el campo es nulo (nil: sin sustitución)
}

// CreationOrder es el orden canónico: más recientes primero.
var CreationOrder = Sort{Field: FieldCreatedAt, Desc: true}

// IsCreationOrder indica si el orden es el canónico por fecha de creación.
func (s Sort) IsCreationOrder() bool {
	return s.Field == FieldCreatedAt
}

// Seek describe la ventana a leer: como mucho Limit filas estrictamente
// posteriores a After según Sort.
type Seek struct {
	After *Cursor
	Sort  Sort
	Limit int
}

// SeekValue devuelve el valor del campo de orden guardado en el cursor.
func (s Seek) SeekValue() interface{} {
	if s.After == nil {
		return nil
	}
	if s.Sort.IsCreationOrder() {
		return s.After.CreatedAt
	}
	return s.After.Value
}
