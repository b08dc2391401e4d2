package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedMongo "github.com/davicafu/csamarket/internal/shared/infra/platform/db/mongodb"
)

// farmFields asocia cada campo lógico a su clave BSON.
var farmFields = sharedMongo.Fields{
	farmDomain.FieldID:              "_id",
	farmDomain.FieldUserID:          "userId",
	farmDomain.FieldName:            "name",
	farmDomain.FieldCity:            "city",
	farmDomain.FieldState:           "state",
	farmDomain.FieldDescription:     "description",
	farmDomain.FieldCategories:      "categories",
	farmDomain.FieldDeliveryOptions: "deliveryOptions",
	farmDomain.FieldPricePerWeek:    "pricePerWeek",
	farmDomain.FieldRating:          "rating",
	farmDomain.FieldGeohash:         "geohash",
	farmDomain.FieldCreatedAt:       "createdAt",
}

// sortFields usa las claves derivadas allí donde el orden sustituye nulos.
var sortFields = map[string]string{
	farmDomain.FieldCreatedAt:    "createdAt",
	farmDomain.FieldName:         "name",
	farmDomain.FieldRating:       "ratingRank",
	farmDomain.FieldPricePerWeek: "priceRank",
}

func sortField(field string) (string, error) {
	key, ok := sortFields[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", sharedMongo.ErrUnknownField, field)
	}
	return key, nil
}

func criteriaToMongoFilter(criteria sharedDomain.Criteria) (bson.D, error) {
	return sharedMongo.CriteriaToFilter(criteria, farmFields)
}
