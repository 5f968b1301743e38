package mongotable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dogmatiq/eventtable/table"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Service is an implementation of table.Service that stores each table in a
// MongoDB collection of the same name.
type Service struct {
	// Database is the MongoDB database to use.
	Database *mongo.Database

	// Clock returns the current time, used as the insertion timestamp of new
	// rows. If it is nil, time.Now() is used.
	//
	// MongoDB stores times with millisecond precision, so timestamps are
	// truncated accordingly.
	Clock func() time.Time
}

// CreateIfAbsent creates the named table if it does not already exist.
func (s *Service) CreateIfAbsent(ctx context.Context, name string) error {
	_, err := s.Database.
		Collection(registryCollection).
		InsertOne(ctx, tableDocument{Name: name})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}

	_, err = s.Database.
		Collection(name).
		Indexes().
		CreateOne(
			ctx,
			mongo.IndexModel{
				Keys: bson.D{
					{Key: "_id.p", Value: 1},
					{Key: "seq", Value: 1},
				},
			},
		)

	return err
}

// Insert adds a new row to a table.
func (s *Service) Insert(ctx context.Context, name string, r table.Row) (table.Row, error) {
	seq, err := s.nextSequence(ctx, name)
	if err != nil {
		return table.Row{}, err
	}

	r.ETag = uuid.NewString()
	r.Timestamp = s.now()

	if _, err := s.Database.
		Collection(name).
		InsertOne(ctx, marshalRow(r, seq)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return table.Row{}, &table.DuplicateKeyError{
				Op:    table.OpInsert,
				Table: name,
				ID:    r.ID,
			}
		}

		return table.Row{}, err
	}

	return r, nil
}

// Replace overwrites an existing row.
func (s *Service) Replace(ctx context.Context, name string, r table.Row) (table.Row, error) {
	if err := s.checkTable(ctx, name); err != nil {
		return table.Row{}, err
	}

	filter := bson.M{"_id": marshalID(r.ID)}
	if r.ETag != "" {
		filter["etag"] = r.ETag
	}

	props := r.Properties
	if props == nil {
		props = table.Properties{}
	}

	r.ETag = uuid.NewString()

	var doc rowDocument
	err := s.Database.
		Collection(name).
		FindOneAndUpdate(
			ctx,
			filter,
			bson.M{
				"$set": bson.M{
					"etag":  r.ETag,
					"props": map[string]string(props),
				},
			},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).
		Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		_, exists, err := s.get(ctx, name, r.ID)
		if err != nil {
			return table.Row{}, err
		}

		if exists {
			return table.Row{}, &table.ConflictError{
				Op:    table.OpReplace,
				Table: name,
				ID:    r.ID,
			}
		}

		return table.Row{}, &table.NotFoundError{
			Op:    table.OpReplace,
			Table: name,
			ID:    r.ID,
		}
	}

	if err != nil {
		return table.Row{}, err
	}

	return unmarshalRow(doc), nil
}

// Get returns the row with the given ID.
func (s *Service) Get(ctx context.Context, name string, id table.EntityID) (table.Row, bool, error) {
	if err := s.checkTable(ctx, name); err != nil {
		return table.Row{}, false, err
	}

	return s.get(ctx, name, id)
}

// ScanPartition returns all rows with the given partition key, in the order
// they were inserted.
func (s *Service) ScanPartition(ctx context.Context, name, pk string) ([]table.Row, error) {
	if err := s.checkTable(ctx, name); err != nil {
		return nil, err
	}

	cursor, err := s.Database.
		Collection(name).
		Find(
			ctx,
			bson.M{"_id.p": pk},
			options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
		)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []table.Row

	for cursor.Next(ctx) {
		var doc rowDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("unable to decode row: %w", err)
		}

		rows = append(rows, unmarshalRow(doc))
	}

	return rows, cursor.Err()
}

func (s *Service) get(ctx context.Context, name string, id table.EntityID) (table.Row, bool, error) {
	var doc rowDocument

	err := s.Database.
		Collection(name).
		FindOne(ctx, bson.M{"_id": marshalID(id)}).
		Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return table.Row{}, false, nil
	}

	if err != nil {
		return table.Row{}, false, err
	}

	return unmarshalRow(doc), true, nil
}

// nextSequence allocates the next insertion sequence number of the named
// table.
func (s *Service) nextSequence(ctx context.Context, name string) (int64, error) {
	var doc tableDocument

	err := s.Database.
		Collection(registryCollection).
		FindOneAndUpdate(
			ctx,
			bson.M{"_id": name},
			bson.M{"$inc": bson.M{"seq": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).
		Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, unknownTable(name)
	}

	return doc.Seq, err
}

// checkTable returns an error if the named table has not been created.
func (s *Service) checkTable(ctx context.Context, name string) error {
	err := s.Database.
		Collection(registryCollection).
		FindOne(ctx, bson.M{"_id": name}).
		Err()

	if errors.Is(err, mongo.ErrNoDocuments) {
		return unknownTable(name)
	}

	return err
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}

	return now().Truncate(time.Millisecond).UTC()
}

func unknownTable(name string) error {
	return fmt.Errorf("table '%s' does not exist", name)
}
