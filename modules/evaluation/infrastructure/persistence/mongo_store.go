package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

const countersCollection = "counters"

// MongoStore implements domain.Store on MongoDB. One collection per kind; integer
// ids come from a counters collection. SaveAtomic runs in a session transaction,
// so the server must be a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logrus.Entry
}

func NewMongoStore(client *mongo.Client, database string, logger *logrus.Logger) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(database),
		log:    logger.WithField("component", "mongo_store"),
	}
}

// ConnectMongo dials and pings the server.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}
	return client, nil
}

// EnsureIndexes creates the unique score index and the foreign-key lookup indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[domain.Kind][]mongo.IndexModel{
		domain.KindEvaluatorAssignment: {
			{Keys: bson.D{{Key: "evaluator_id", Value: 1}, {Key: "active", Value: 1}}},
			{Keys: bson.D{{Key: "employee_id", Value: 1}, {Key: "team_id", Value: 1}}},
		},
		domain.KindEvaluationScore: {
			{Keys: bson.D{{Key: "evaluation_id", Value: 1}, {Key: "criteria_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		domain.KindComment: {
			{Keys: bson.D{{Key: "score_id", Value: 1}}},
		},
	}
	for kind, models := range indexes {
		if _, err := s.db.Collection(kind.Table()).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", kind.Table())
		}
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(domain.ErrUnknownKind, "find %q", kind)
	}
	var doc bson.M
	err := s.db.Collection(kind.Table()).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(domain.ErrNotFound, "find %s#%d", kind, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find %s#%d", kind, id)
	}
	return documentToEntity(kind, doc)
}

func (s *MongoStore) Query(ctx context.Context, kind domain.Kind, where domain.Predicate) ([]domain.Entity, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(domain.ErrUnknownKind, "query %q", kind)
	}
	filter, err := compileBSON(kind, where)
	if err != nil {
		return nil, err
	}
	cur, err := s.db.Collection(kind.Table()).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", kind)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "query %s", kind)
	}

	out := make([]domain.Entity, 0, len(docs))
	for _, doc := range docs {
		e, err := documentToEntity(kind, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MongoStore) SaveAtomic(ctx context.Context, mutations []domain.Entity) ([]domain.Entity, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, errors.Wrap(err, "start session")
	}
	defer sess.EndSession(ctx)

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		out := make([]domain.Entity, len(mutations))
		for i, e := range mutations {
			saved, err := s.saveDocument(sc, e)
			if err != nil {
				return nil, errors.Wrapf(err, "save row %d", i)
			}
			out[i] = saved
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).WithField("rows", len(mutations)).Debug("atomic save committed")
	return res.([]domain.Entity), nil
}

func (s *MongoStore) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	if !kind.Valid() {
		return errors.Wrapf(domain.ErrUnknownKind, "delete %q", kind)
	}
	res, err := s.db.Collection(kind.Table()).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrapf(err, "delete %s#%d", kind, id)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "delete %s#%d", kind, id)
	}
	return nil
}

func (s *MongoStore) saveDocument(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	if e == nil || !e.Kind().Valid() {
		return nil, domain.ErrUnknownKind
	}
	kind := e.Kind()
	coll := s.db.Collection(kind.Table())

	if e.EntityID() == 0 {
		id, err := s.nextID(ctx, kind)
		if err != nil {
			return nil, err
		}
		e = e.WithID(id)
		doc, err := entityToDocument(e)
		if err != nil {
			return nil, err
		}
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			return nil, wrapMongoError(err, "insert %s", kind)
		}
		return e, nil
	}

	doc, err := entityToDocument(e)
	if err != nil {
		return nil, err
	}
	res, err := coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: e.EntityID()}}, doc)
	if err != nil {
		return nil, wrapMongoError(err, "update %s#%d", kind, e.EntityID())
	}
	if res.MatchedCount == 0 {
		return nil, errors.Wrapf(domain.ErrNotFound, "update %s#%d", kind, e.EntityID())
	}
	return e, nil
}

// wrapMongoError reports duplicate-key errors as domain.ErrConflict.
func wrapMongoError(err error, format string, args ...any) error {
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(domain.ErrConflict, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

func (s *MongoStore) nextID(ctx context.Context, kind domain.Kind) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: kind.Table()}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, errors.Wrapf(err, "next id for %s", kind)
	}
	return counter.Seq, nil
}

func entityToDocument(e domain.Entity) (bson.D, error) {
	values := e.Values()
	doc := bson.D{{Key: "_id", Value: e.EntityID()}}
	for _, c := range e.Kind().Columns() {
		if c.Name == "id" {
			continue
		}
		v := values[c.Name]
		if d, ok := v.(decimal.Decimal); ok {
			dec, err := primitive.ParseDecimal128(d.String())
			if err != nil {
				return nil, errors.Wrapf(err, "encode %s.%s", e.Kind(), c.Name)
			}
			v = dec
		}
		doc = append(doc, bson.E{Key: c.Name, Value: v})
	}
	return doc, nil
}

func documentToEntity(kind domain.Kind, doc bson.M) (domain.Entity, error) {
	rec := make(domain.Record, len(doc))
	for _, c := range kind.Columns() {
		v := doc[mongoField(c.Name)]
		switch t := v.(type) {
		case primitive.DateTime:
			v = t.Time().UTC()
		case primitive.Decimal128:
			d, err := decimal.NewFromString(t.String())
			if err != nil {
				return nil, errors.Wrapf(err, "decode %s.%s", kind, c.Name)
			}
			v = d
		case time.Time:
			v = t.UTC()
		}
		rec[c.Name] = v
	}
	return domain.Hydrate(kind, rec)
}
