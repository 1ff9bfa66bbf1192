// Package mongostore implements the result, passage and admin store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/store"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

const connectTimeout = 10 * time.Second

const (
	passagesCollection = "passages"
	resultsCollection  = "results"
	adminsCollection   = "admins"
)

// Store wraps a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// resultDoc embeds per-word stats in the result document.
type resultDoc struct {
	model.Result `bson:",inline"`
	Words        []model.WordStats `bson:"words,omitempty"`
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(adminsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create admin index: %w", err)
	}
	_, err = s.db.Collection(resultsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "endedAt", Value: 1}}},
		{Keys: bson.D{{Key: "exam", Value: 1}, {Key: "candidate", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create result indexes: %w", err)
	}
	_, err = s.db.Collection(passagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "lang", Value: 1}, {Key: "exam", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create passage index: %w", err)
	}
	return nil
}

// CreatePassage stores a new passage, assigning an ID and timestamps.
func (s *Store) CreatePassage(ctx context.Context, p model.Passage) (model.Passage, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.CreatedAt = now
	p.UpdatedAt = now
	p.WordCount = len(typing.Tokenize(p.Text))
	if _, err := s.db.Collection(passagesCollection).InsertOne(ctx, p); err != nil {
		return model.Passage{}, mapError(err)
	}
	return p, nil
}

// GetPassage loads a passage by ID.
func (s *Store) GetPassage(ctx context.Context, id string) (model.Passage, error) {
	var p model.Passage
	err := s.db.Collection(passagesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		return model.Passage{}, mapError(err)
	}
	return p, nil
}

// ListPassages returns passages matching the filter ordered by title.
func (s *Store) ListPassages(ctx context.Context, filter model.PassageFilter) ([]model.Passage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}, {Key: "createdAt", Value: 1}})
	cur, err := s.db.Collection(passagesCollection).Find(ctx, passageFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	var out []model.Passage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RandomPassage samples one passage matching the filter.
func (s *Store) RandomPassage(ctx context.Context, filter model.PassageFilter) (model.Passage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: passageFilter(filter)}},
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}},
	}
	cur, err := s.db.Collection(passagesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return model.Passage{}, err
	}
	defer cur.Close(ctx)

	var p model.Passage
	if cur.Next(ctx) {
		if err := cur.Decode(&p); err != nil {
			return model.Passage{}, err
		}
		return p, nil
	}
	if err := cur.Err(); err != nil {
		return model.Passage{}, err
	}
	return model.Passage{}, store.ErrNotFound
}

// UpdatePassage replaces the editable fields of an existing passage.
func (s *Store) UpdatePassage(ctx context.Context, p model.Passage) (model.Passage, error) {
	p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	p.WordCount = len(typing.Tokenize(p.Text))
	update := bson.M{"$set": bson.M{
		"title":     p.Title,
		"lang":      p.Lang,
		"exam":      p.Exam,
		"text":      p.Text,
		"wordCount": p.WordCount,
		"updatedAt": p.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Passage
	err := s.db.Collection(passagesCollection).FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, update, opts).Decode(&updated)
	if err != nil {
		return model.Passage{}, mapError(err)
	}
	return updated, nil
}

// DeletePassage removes a passage. Results referencing it are kept.
func (s *Store) DeletePassage(ctx context.Context, id string) error {
	res, err := s.db.Collection(passagesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InsertResult stores a scored result with its per-word stats embedded.
func (s *Store) InsertResult(ctx context.Context, r model.Result, words []model.WordStats) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.StartedAt = r.StartedAt.UTC().Truncate(time.Millisecond)
	r.EndedAt = r.EndedAt.UTC().Truncate(time.Millisecond)
	if _, err := s.db.Collection(resultsCollection).InsertOne(ctx, resultDoc{Result: r, Words: words}); err != nil {
		return "", mapError(err)
	}
	return r.ID, nil
}

// GetResult loads a full result by ID.
func (s *Store) GetResult(ctx context.Context, id string) (model.Result, error) {
	var doc resultDoc
	err := s.db.Collection(resultsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return model.Result{}, mapError(err)
	}
	return doc.Result, nil
}

// ListResults returns result aggregates filtered by stats config, oldest first.
func (s *Store) ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.ResultAggregate, error) {
	filter := bson.M{}
	if cfg.Lang != "" {
		filter["lang"] = cfg.Lang
	}
	if cfg.Exam != "" {
		filter["exam"] = cfg.Exam
	}
	if cfg.Candidate != "" {
		filter["candidate"] = cfg.Candidate
	}
	if cfg.Since != nil {
		filter["endedAt"] = bson.M{"$gte": cfg.Since.UTC()}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "endedAt", Value: -1}}).
		SetProjection(bson.M{"words": 0, "typedText": 0, "referenceText": 0})
	if cfg.Last > 0 {
		opts.SetLimit(int64(cfg.Last))
	}
	cur, err := s.db.Collection(resultsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []resultDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.ResultAggregate, len(docs))
	for i, d := range docs {
		out[len(docs)-1-i] = d.Aggregate()
	}
	return out, nil
}

// CreateAdmin stores a new admin account. Usernames are unique.
func (s *Store) CreateAdmin(ctx context.Context, a model.Admin) (model.Admin, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if _, err := s.db.Collection(adminsCollection).InsertOne(ctx, a); err != nil {
		return model.Admin{}, mapError(err)
	}
	return a, nil
}

// GetAdminByUsername loads an admin account.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (model.Admin, error) {
	var a model.Admin
	err := s.db.Collection(adminsCollection).FindOne(ctx, bson.M{"username": username}).Decode(&a)
	if err != nil {
		return model.Admin{}, mapError(err)
	}
	return a, nil
}

// SetAdminLastLogin records a successful login.
func (s *Store) SetAdminLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.Collection(adminsCollection).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at.UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func passageFilter(filter model.PassageFilter) bson.M {
	m := bson.M{}
	if filter.Lang != "" {
		m["lang"] = filter.Lang
	}
	if filter.Exam != "" {
		m["exam"] = filter.Exam
	}
	return m
}

func mapError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrConflict
	default:
		return err
	}
}
