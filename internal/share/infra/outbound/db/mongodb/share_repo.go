package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedMongo "github.com/davicafu/csamarket/internal/shared/infra/platform/db/mongodb"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

var shareFields = sharedMongo.Fields{
	shareDomain.FieldID:        "_id",
	shareDomain.FieldFarmID:    "farmId",
	shareDomain.FieldAvailable: "available",
	shareDomain.FieldCreatedAt: "createdAt",
}

// ShareRepoMongoDB guarda las cuotas en la colección csa_shares.
type ShareRepoMongoDB struct {
	client     *mongo.Client
	sharesColl *mongo.Collection
	outboxColl *mongo.Collection
}

func NewShareRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*ShareRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &ShareRepoMongoDB{
		client:     client,
		sharesColl: db.Collection("csa_shares"),
		outboxColl: db.Collection(sharedMongo.OutboxCollection),
	}, nil
}

type mongoShare struct {
	ID                 string     `bson:"_id"`
	FarmID             string     `bson:"farmId"`
	Name               string     `bson:"name"`
	Description        string     `bson:"description"`
	Price              int64      `bson:"price"`
	Frequency          string     `bson:"frequency"`
	Available          bool       `bson:"available"`
	StartDate          *time.Time `bson:"startDate"`
	EndDate            *time.Time `bson:"endDate"`
	MaxSubscribers     *int       `bson:"maxSubscribers"`
	CurrentSubscribers int        `bson:"currentSubscribers"`
	CreatedAt          time.Time  `bson:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt"`
}

// withTx ejecuta fn y guarda el evento en la misma transacción.
func (r *ShareRepoMongoDB) withTx(ctx context.Context, evt sharedDomain.OutboxEvent, fn func(sessCtx mongo.SessionContext) error) error {
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
		if err := fn(sessCtx); err != nil {
			return nil, err
		}
		_, err := r.outboxColl.InsertOne(sessCtx, mo)
		return nil, err
	})
	return err
}

func (r *ShareRepoMongoDB) Create(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	truncateShareDates(s)
	return r.withTx(ctx, evt, func(sessCtx mongo.SessionContext) error {
		_, err := r.sharesColl.InsertOne(sessCtx, toMongoShare(s))
		if mongo.IsDuplicateKeyError(err) {
			return shareDomain.ErrShareAlreadyExists
		}
		return err
	})
}

func (r *ShareRepoMongoDB) Update(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	truncateShareDates(s)
	return r.withTx(ctx, evt, func(sessCtx mongo.SessionContext) error {
		ms := toMongoShare(s)
		update := bson.M{"$set": bson.M{
			"name": ms.Name, "description": ms.Description, "price": ms.Price,
			"frequency": ms.Frequency, "available": ms.Available,
			"startDate": ms.StartDate, "endDate": ms.EndDate,
			"maxSubscribers": ms.MaxSubscribers, "currentSubscribers": ms.CurrentSubscribers,
			"updatedAt": ms.UpdatedAt,
		}}
		res, err := r.sharesColl.UpdateOne(sessCtx, bson.M{"_id": ms.ID}, update)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return shareDomain.ErrShareNotFound
		}
		return nil
	})
}

func (r *ShareRepoMongoDB) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	return r.withTx(ctx, evt, func(sessCtx mongo.SessionContext) error {
		res, err := r.sharesColl.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return shareDomain.ErrShareNotFound
		}
		return nil
	})
}

func (r *ShareRepoMongoDB) GetByID(ctx context.Context, id string) (*shareDomain.Share, error) {
	var ms mongoShare
	if err := r.sharesColl.FindOne(ctx, bson.M{"_id": id}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shareDomain.ErrShareNotFound
		}
		return nil, err
	}
	return fromMongoShare(&ms), nil
}

func (r *ShareRepoMongoDB) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*shareDomain.Share, error) {
	filter, sortKey, err := pageFilter(criteria, seek)
	if err != nil {
		return nil, err
	}

	cursor, err := r.sharesColl.Find(ctx, filter, sharedMongo.FindPageOptions(sortKey, seek))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	shares := make([]*shareDomain.Share, 0, seek.Limit)
	for cursor.Next(ctx) {
		var ms mongoShare
		if err := cursor.Decode(&ms); err != nil {
			return nil, err
		}
		shares = append(shares, fromMongoShare(&ms))
	}
	return shares, cursor.Err()
}

// pageFilter combina criterios y posición; las cuotas sólo se ordenan por
// fecha de creación.
func pageFilter(criteria sharedDomain.Criteria, seek sharedQuery.Seek) (bson.D, string, error) {
	sortKey, ok := shareFields[seek.Sort.Field]
	if !ok || !seek.Sort.IsCreationOrder() {
		return nil, "", fmt.Errorf("%w: %s", sharedMongo.ErrUnknownField, seek.Sort.Field)
	}

	filter, err := sharedMongo.CriteriaToFilter(criteria, shareFields)
	if err != nil {
		return nil, "", err
	}
	if seek.After != nil {
		filter = sharedMongo.AndFilters(filter, sharedMongo.SeekFilter(sortKey, seek))
	}
	return filter, sortKey, nil
}

func (r *ShareRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.sharesColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "farmId", Value: 1}}},
	})
	return err
}

// --- Mapeo ---

// truncateShareDates deja las fechas con la precisión BSON antes de escribir.
func truncateShareDates(s *shareDomain.Share) {
	s.StartDate = sharedMongo.TruncateDatePtr(s.StartDate)
	s.EndDate = sharedMongo.TruncateDatePtr(s.EndDate)
	s.CreatedAt = sharedMongo.TruncateDate(s.CreatedAt)
	s.UpdatedAt = sharedMongo.TruncateDate(s.UpdatedAt)
}

func toMongoShare(s *shareDomain.Share) *mongoShare {
	return &mongoShare{
		ID: s.ID, FarmID: s.FarmID, Name: s.Name, Description: s.Description,
		Price: s.Price, Frequency: string(s.Frequency), Available: s.Available,
		StartDate: s.StartDate, EndDate: s.EndDate,
		MaxSubscribers: s.MaxSubscribers, CurrentSubscribers: s.CurrentSubscribers,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func fromMongoShare(ms *mongoShare) *shareDomain.Share {
	s := &shareDomain.Share{
		ID: ms.ID, FarmID: ms.FarmID, Name: ms.Name, Description: ms.Description,
		Price: ms.Price, Frequency: shareDomain.Frequency(ms.Frequency), Available: ms.Available,
		MaxSubscribers: ms.MaxSubscribers, CurrentSubscribers: ms.CurrentSubscribers,
		CreatedAt: ms.CreatedAt.UTC(), UpdatedAt: ms.UpdatedAt.UTC(),
	}
	if ms.StartDate != nil {
		t := ms.StartDate.UTC()
		s.StartDate = &t
	}
	if ms.EndDate != nil {
		t := ms.EndDate.UTC()
		s.EndDate = &t
	}
	return s
}

var _ shareDomain.ShareRepository = (*ShareRepoMongoDB)(nil)
