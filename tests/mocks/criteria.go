package mocks

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// ---------- evaluación de criterios ----------

// foldString crea un Caser por llamada: un Caser no se puede compartir entre goroutines.
func foldString(s string) string {
	return cases.Fold().String(s)
}

// fieldGetter devuelve el valor de un campo lógico y si está presente.
type fieldGetter func(field string) (interface{}, bool, error)

func matchAll(get fieldGetter, conds []sharedDomain.Criterion) (bool, error) {
	for _, c := range conds {
		ok, err := match(get, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(get fieldGetter, c sharedDomain.Criterion) (bool, error) {
	if c.IsGroup() {
		for _, sub := range c.Any {
			ok, err := match(get, sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	value, present, err := get(c.Field)
	if err != nil {
		return false, err
	}
	if !present {
		if c.Coalesce == nil {
			return false, nil
		}
		value = c.Coalesce
	}

	switch c.Op {
	case sharedDomain.OpEq:
		return value == c.Value, nil
	case sharedDomain.OpEqFold:
		return foldString(fmt.Sprint(value)) == foldString(fmt.Sprint(c.Value)), nil
	case sharedDomain.OpContains:
		return strings.Contains(foldString(fmt.Sprint(value)), foldString(fmt.Sprint(c.Value))), nil
	case sharedDomain.OpPrefix:
		return strings.HasPrefix(fmt.Sprint(value), fmt.Sprint(c.Value)), nil
	case sharedDomain.OpHas:
		list, ok := value.([]string)
		if !ok {
			return false, fmt.Errorf("field %q is not a list", c.Field)
		}
		for _, v := range list {
			if foldString(v) == foldString(fmt.Sprint(c.Value)) {
				return true, nil
			}
		}
		return false, nil
	case sharedDomain.OpGt, sharedDomain.OpGte, sharedDomain.OpLt, sharedDomain.OpLte:
		a, okA := value.(float64)
		b, okB := c.Value.(float64)
		if !okA || !okB {
			return false, fmt.Errorf("field %q: numeric comparison on non-number", c.Field)
		}
		switch c.Op {
		case sharedDomain.OpGt:
			return a > b, nil
		case sharedDomain.OpGte:
			return a >= b, nil
		case sharedDomain.OpLt:
			return a < b, nil
		default:
			return a <= b, nil
		}
	default:
		return false, fmt.Errorf("unknown operator %q", c.Op)
	}
}

// sortKey devuelve el valor de orden aplicando el valor por defecto del Sort.
func sortKey(get fieldGetter, s sharedQuery.Sort) interface{} {
	v, present, _ := get(s.Field)
	if !present {
		return s.Fallback
	}
	return v
}

// compareKeys ordena por (clave, id) en la dirección pedida. Devuelve <0 si
// (ka, ida) va antes que (kb, idb).
func compareKeys(ka interface{}, ida string, kb interface{}, idb string, desc bool) int {
	cmp := compareValues(ka, kb)
	if cmp == 0 {
		cmp = strings.Compare(ida, idb)
	}
	if desc {
		return -cmp
	}
	return cmp
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	}
	return 0
}
