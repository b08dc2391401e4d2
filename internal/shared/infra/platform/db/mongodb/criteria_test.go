package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

var testFields = Fields{"id": "_id", "farm_id": "farmId", "available": "available"}

func TestCriteriaToFilter_GroupAndEq(t *testing.T) {
	crit := sharedDomain.Conditions{
		{Any: []sharedDomain.Criterion{
			{Field: "farm_id", Op: sharedDomain.OpEq, Value: "farm_1"},
			{Field: "farm_id", Op: sharedDomain.OpEq, Value: "farm_2"},
		}},
		{Field: "available", Op: sharedDomain.OpEq, Value: true},
	}

	f, err := CriteriaToFilter(crit, testFields)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "farmId", Value: bson.M{"$eq": "farm_1"}}},
			bson.D{{Key: "farmId", Value: bson.M{"$eq": "farm_2"}}},
		}}},
		bson.D{{Key: "available", Value: bson.M{"$eq": true}}},
	}}}, f)
}

func TestCriteriaToFilter_Errors(t *testing.T) {
	_, err := CriteriaToFilter(sharedDomain.Conditions{{Field: "nope", Op: sharedDomain.OpEq}}, testFields)
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = CriteriaToFilter(sharedDomain.Conditions{{Field: "id", Op: "~"}}, testFields)
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestCompare(t *testing.T) {
	assert.True(t, compare(5.0, sharedDomain.OpGte, 4.0))
	assert.False(t, compare(5.0, sharedDomain.OpGt, 5.0))
	assert.True(t, compare(1e18, sharedDomain.OpGt, 40.0))
	assert.False(t, compare("5", sharedDomain.OpEq, 5.0))
}

func TestFindPageOptions(t *testing.T) {
	opts := FindPageOptions("createdAt", sharedQuery.Seek{Sort: sharedQuery.CreationOrder, Limit: 21})
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}, opts.Sort)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(21), *opts.Limit)
}
