package domain

// ---------------- Operadores ----------------

type Operator string

const (
	OpEq  Operator = "="
	OpGt  Operator = ">"
	OpGte Operator = ">="
	OpLt  Operator = "<"
	OpLte Operator = "<="

	// OpEqFold compara igualdad sin distinguir mayúsculas.
	OpEqFold Operator = "EQFOLD"
	// OpContains busca una subcadena sin distinguir mayúsculas. El valor va sin comodines.
	OpContains Operator = "CONTAINS"
	// OpHas exige que el campo (una lista) contenga el valor, sin distinguir mayúsculas.
	OpHas Operator = "HAS"
	// OpPrefix exige que el campo empiece por el valor.
	OpPrefix Operator = "PREFIX"
)

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// ---------------- Criterion ----------------

// Criterion describe una condición neutral de filtrado.
//
// Si Any no está vacío, el Criterion es una disyunción de sus elementos y
// Field/Op/Value se ignoran. Coalesce, si no es nil, es el valor que se asume
// cuando el campo no tiene valor.
type Criterion struct {
	Field    string
	Op       Operator
	Value    interface{}
	Coalesce interface{}
	Any      []Criterion
}

// IsGroup indica si el criterio es una disyunción.
func (c Criterion) IsGroup() bool {
	return len(c.Any) > 0
}

// ---------------- Criteria interface ----------------

// Criteria permite transformar filtros a condiciones neutrales
type Criteria interface {
	ToConditions() []Criterion
}

// ---------------- Composite Criteria ----------------

type CompositeCriteria struct {
	Operator  LogicalOperator
	Criterias []Criteria
}

// ToConditions aplana los criterios hijos. Con OpAnd el resultado es una lista
// de condiciones que deben cumplirse todas; con OpOr se devuelve un único grupo.
func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		if crit == nil {
			continue
		}
		all = append(all, crit.ToConditions()...)
	}
	if c.Operator == OpOr && len(all) > 1 {
		return []Criterion{{Any: all}}
	}
	return all
}

// ---------------- Helpers ----------------

// And crea un CompositeCriteria con operador AND
func And(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpAnd, Criterias: criterias}
}

// Or crea un CompositeCriteria con operador OR
func Or(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpOr, Criterias: criterias}
}

// Conditions es un Criteria formado por condiciones ya construidas.
type Conditions []Criterion

func (c Conditions) ToConditions() []Criterion {
	return c
}
