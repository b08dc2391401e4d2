package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedMongo "github.com/davicafu/csamarket/internal/shared/infra/platform/db/mongodb"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// FarmRepoMongoDB implementa la interfaz FarmRepository para MongoDB.
type FarmRepoMongoDB struct {
	client     *mongo.Client
	farmsColl  *mongo.Collection
	outboxColl *mongo.Collection
}

// NewFarmRepoMongoDB es el constructor del repositorio.
func NewFarmRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*FarmRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &FarmRepoMongoDB{
		client:     client,
		farmsColl:  db.Collection("farms"),
		outboxColl: db.Collection(sharedMongo.OutboxCollection),
	}, nil
}

// --- Structs de BSON para el mapeo ---

// mongoFarm guarda además ratingRank y priceRank, los valores efectivos con
// los que se ordena, para que el orden con nulos sea una simple clave indexada.
type mongoFarm struct {
	ID              string    `bson:"_id"`
	UserID          string    `bson:"userId"`
	Name            string    `bson:"name"`
	Description     string    `bson:"description"`
	Address         string    `bson:"address"`
	City            string    `bson:"city"`
	State           string    `bson:"state"`
	ZipCode         string    `bson:"zipCode"`
	Latitude        string    `bson:"latitude"`
	Longitude       string    `bson:"longitude"`
	Geohash         string    `bson:"geohash"`
	ImageURLs       []string  `bson:"imageUrls"`
	Categories      []string  `bson:"categories"`
	DeliveryOptions []string  `bson:"deliveryOptions"`
	PricePerWeek    *float64  `bson:"pricePerWeek"`
	Rating          *float64  `bson:"rating"`
	RatingRank      float64   `bson:"ratingRank"`
	PriceRank       float64   `bson:"priceRank"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

// --- CRUD Transaccional ---

func (r *FarmRepoMongoDB) Create(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) error {
	truncateFarmDates(f)
	mo, err := sharedMongo.ToOutboxDocument(evt)
	if err != nil {
		return err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	// La transacción asegura que la granja y el evento se guardan juntos.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.farmsColl.InsertOne(sessCtx, toMongoFarm(f)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, farmDomain.ErrFarmAlreadyExists
			}
			return nil, err
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, mo); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *FarmRepoMongoDB) Update(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) error {
	truncateFarmDates(f)
	mo, err := sharedMongo.ToOutboxDocument(evt)
	if err != nil {
		return err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		mf := toMongoFarm(f)
		update := bson.M{"$set": bson.M{
			"name": mf.Name, "description": mf.Description, "address": mf.Address,
			"city": mf.City, "state": mf.State, "zipCode": mf.ZipCode,
			"latitude": mf.Latitude, "longitude": mf.Longitude, "geohash": mf.Geohash,
			"imageUrls": mf.ImageURLs, "categories": mf.Categories, "deliveryOptions": mf.DeliveryOptions,
			"pricePerWeek": mf.PricePerWeek, "rating": mf.Rating,
			"ratingRank": mf.RatingRank, "priceRank": mf.PriceRank,
			"updatedAt": mf.UpdatedAt,
		}}

		res, err := r.farmsColl.UpdateOne(sessCtx, bson.M{"_id": mf.ID}, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, farmDomain.ErrFarmNotFound
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, mo); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *FarmRepoMongoDB) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	mo, err := sharedMongo.ToOutboxDocument(evt)
	if err != nil {
		return err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.farmsColl.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, farmDomain.ErrFarmNotFound
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, mo); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

// --- Lectura ---

func (r *FarmRepoMongoDB) GetByID(ctx context.Context, id string) (*farmDomain.Farm, error) {
	var mf mongoFarm
	err := r.farmsColl.FindOne(ctx, bson.M{"_id": id}).Decode(&mf)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, farmDomain.ErrFarmNotFound
		}
		return nil, err
	}
	return fromMongoFarm(&mf), nil
}

func (r *FarmRepoMongoDB) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*farmDomain.Farm, error) {
	filter, err := criteriaToMongoFilter(criteria)
	if err != nil {
		return nil, err
	}
	sortKey, err := sortField(seek.Sort.Field)
	if err != nil {
		return nil, err
	}

	if seek.After != nil {
		filter = sharedMongo.AndFilters(filter, sharedMongo.SeekFilter(sortKey, seek))
	}

	cursor, err := r.farmsColl.Find(ctx, filter, sharedMongo.FindPageOptions(sortKey, seek))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	farms := make([]*farmDomain.Farm, 0, seek.Limit)
	for cursor.Next(ctx) {
		var mf mongoFarm
		if err := cursor.Decode(&mf); err != nil {
			return nil, err
		}
		farms = append(farms, fromMongoFarm(&mf))
	}
	return farms, cursor.Err()
}

// EnsureIndexes crea los índices que usan los listados.
func (r *FarmRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.farmsColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "ratingRank", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "priceRank", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "geohash", Value: 1}}},
	})
	return err
}

// --- Helpers de Mapeo y Conversión ---

// truncateFarmDates deja las fechas de la granja con la precisión BSON, antes de
// serializar el evento, para que la entidad devuelta, la cacheada y la leída coincidan.
func truncateFarmDates(f *farmDomain.Farm) {
	f.CreatedAt = sharedMongo.TruncateDate(f.CreatedAt)
	f.UpdatedAt = sharedMongo.TruncateDate(f.UpdatedAt)
}

func toMongoFarm(f *farmDomain.Farm) *mongoFarm {
	return &mongoFarm{
		ID: f.ID, UserID: f.UserID, Name: f.Name, Description: f.Description,
		Address: f.Address, City: f.City, State: f.State, ZipCode: f.ZipCode,
		Latitude: f.Latitude, Longitude: f.Longitude, Geohash: f.Geohash,
		ImageURLs: nonNil(f.ImageURLs), Categories: nonNil(f.Categories), DeliveryOptions: nonNil(f.DeliveryOptions),
		PricePerWeek: f.PricePerWeek, Rating: f.Rating,
		RatingRank: f.EffectiveRating(), PriceRank: f.PriceRank(),
		CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt,
	}
}

func fromMongoFarm(mf *mongoFarm) *farmDomain.Farm {
	return &farmDomain.Farm{
		ID: mf.ID, UserID: mf.UserID, Name: mf.Name, Description: mf.Description,
		Address: mf.Address, City: mf.City, State: mf.State, ZipCode: mf.ZipCode,
		Latitude: mf.Latitude, Longitude: mf.Longitude, Geohash: mf.Geohash,
		ImageURLs: nonNil(mf.ImageURLs), Categories: nonNil(mf.Categories), DeliveryOptions: nonNil(mf.DeliveryOptions),
		PricePerWeek: mf.PricePerWeek, Rating: mf.Rating,
		CreatedAt: mf.CreatedAt.UTC(), UpdatedAt: mf.UpdatedAt.UTC(),
	}
}

func nonNil(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}

// Verificación en tiempo de compilación.
var _ farmDomain.FarmRepository = (*FarmRepoMongoDB)(nil)
