package mongodb

import (
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

var (
	ErrUnknownField    = errors.New("unknown criteria field")
	ErrUnknownOperator = errors.New("unknown criteria operator")
)

// Fields asocia cada campo lógico a su clave BSON.
type Fields map[string]string

var comparisonOps = map[sharedDomain.Operator]string{
	sharedDomain.OpEq:  "$eq",
	sharedDomain.OpGt:  "$gt",
	sharedDomain.OpGte: "$gte",
	sharedDomain.OpLt:  "$lt",
	sharedDomain.OpLte: "$lte",
}

// CriteriaToFilter traduce criterios neutrales a un filtro BSON usando fields
// para resolver cada campo lógico.
func CriteriaToFilter(criteria sharedDomain.Criteria, fields Fields) (bson.D, error) {
	if criteria == nil {
		return bson.D{}, nil
	}
	conds := criteria.ToConditions()

	parts := make([]bson.D, 0, len(conds))
	for _, c := range conds {
		d, err := conditionToMongo(c, fields)
		if err != nil {
			return nil, err
		}
		parts = append(parts, d)
	}
	return AndFilters(parts...), nil
}

// AndFilters combina filtros con $and; varios tramos pueden tocar el mismo campo.
func AndFilters(filters ...bson.D) bson.D {
	nonEmpty := make(bson.A, 0, len(filters))
	for _, f := range filters {
		if len(f) > 0 {
			nonEmpty = append(nonEmpty, f)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return bson.D{}
	case 1:
		return nonEmpty[0].(bson.D)
	default:
		return bson.D{{Key: "$and", Value: nonEmpty}}
	}
}

func conditionToMongo(c sharedDomain.Criterion, fields Fields) (bson.D, error) {
	if c.IsGroup() {
		anyOf := make(bson.A, 0, len(c.Any))
		for _, sub := range c.Any {
			d, err := conditionToMongo(sub, fields)
			if err != nil {
				return nil, err
			}
			anyOf = append(anyOf, d)
		}
		return bson.D{{Key: "$or", Value: anyOf}}, nil
	}

	key, ok := fields[c.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, c.Field)
	}
	text := fmt.Sprint(c.Value)

	switch c.Op {
	case sharedDomain.OpEq, sharedDomain.OpGt, sharedDomain.OpGte, sharedDomain.OpLt, sharedDomain.OpLte:
		cond := bson.D{{Key: key, Value: bson.M{comparisonOps[c.Op]: c.Value}}}
		// Un campo nulo cumple si el valor asumido cumple.
		if c.Coalesce != nil && compare(c.Coalesce, c.Op, c.Value) {
			return bson.D{{Key: "$or", Value: bson.A{cond, bson.D{{Key: key, Value: nil}}}}}, nil
		}
		return cond, nil
	case sharedDomain.OpEqFold:
		return regexFilter(key, "^"+regexp.QuoteMeta(text)+"$", "i"), nil
	case sharedDomain.OpContains:
		return regexFilter(key, regexp.QuoteMeta(text), "i"), nil
	case sharedDomain.OpPrefix:
		return regexFilter(key, "^"+regexp.QuoteMeta(text), ""), nil
	case sharedDomain.OpHas:
		// Sobre un array, $regex casa si algún elemento casa.
		return regexFilter(key, "^"+regexp.QuoteMeta(text)+"$", "i"), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, c.Op)
	}
}

func regexFilter(key, pattern, options string) bson.D {
	return bson.D{{Key: key, Value: primitive.Regex{Pattern: pattern, Options: options}}}
}

// compare evalúa a op b para los float64 que usan los valores asumidos.
func compare(a interface{}, op sharedDomain.Operator, b interface{}) bool {
	x, okA := a.(float64)
	y, okB := b.(float64)
	if !okA || !okB {
		return false
	}
	switch op {
	case sharedDomain.OpEq:
		return x == y
	case sharedDomain.OpGt:
		return x > y
	case sharedDomain.OpGte:
		return x >= y
	case sharedDomain.OpLt:
		return x < y
	case sharedDomain.OpLte:
		return x <= y
	}
	return false
}

// SeekFilter exige estar estrictamente después de (valor, id) en el orden dado.
func SeekFilter(key string, seek sharedQuery.Seek) bson.D {
	op := "$gt"
	if seek.Sort.Desc {
		op = "$lt"
	}
	value := seek.SeekValue()
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: key, Value: bson.M{op: value}}},
		bson.D{{Key: key, Value: value}, {Key: "_id", Value: bson.M{op: seek.After.ID}}},
	}}}
}

// FindPageOptions ordena por (key, _id) en la dirección del seek y limita.
func FindPageOptions(key string, seek sharedQuery.Seek) *options.FindOptions {
	dir := 1
	if seek.Sort.Desc {
		dir = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(int64(seek.Limit))
}
