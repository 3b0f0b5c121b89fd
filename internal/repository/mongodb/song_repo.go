// Package mongodb is the document-store implementation of the record store.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"
)

// Config holds connection settings.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// SongRepository stores songs as documents keyed by their string ID.
type SongRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ repository.SongRepository = (*SongRepository)(nil)

// Connect opens a client, verifies it with a ping and ensures the indexes
// used by the list filters.
func Connect(ctx context.Context, cfg Config) (*SongRepository, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	r := &SongRepository{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := r.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

// EnsureIndexes creates the filter and ordering indexes if missing.
func (r *SongRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "genre", Value: 1}}},
		{Keys: bson.D{{Key: "artist", Value: 1}}},
		{Keys: bson.D{{Key: "album", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func filterDoc(f repository.SongFilter) bson.M {
	doc := bson.M{}
	if f.Genre != "" {
		doc["genre"] = f.Genre
	}
	if f.Artist != "" {
		doc["artist"] = f.Artist
	}
	if f.Album != "" {
		doc["album"] = f.Album
	}
	return doc
}

// sortDoc orders by the requested field and then by _id ascending. Field
// names are the JSON names, which the bson tags mirror.
func sortDoc(opts repository.ListOptions) bson.D {
	dir := 1
	if opts.Descending {
		dir = -1
	}
	if opts.SortField == "" || opts.SortField == "_id" {
		return bson.D{{Key: "_id", Value: dir}}
	}
	return bson.D{{Key: opts.SortField, Value: dir}, {Key: "_id", Value: 1}}
}

func (r *SongRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Song, int, error) {
	filter := filterDoc(opts.Filter)

	var (
		songs []*domain.Song
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.coll.CountDocuments(gctx, filter)
		total = n
		return err
	})
	g.Go(func() error {
		findOpts := options.Find().SetSort(sortDoc(opts)).SetSkip(int64(max(opts.Skip, 0)))
		if opts.Limit > 0 {
			findOpts.SetLimit(int64(opts.Limit))
		}
		cur, err := r.coll.Find(gctx, filter, findOpts)
		if err != nil {
			return err
		}
		return cur.All(gctx, &songs)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return songs, int(total), nil
}

// idFilter matches id stored either as a string or, for documents written
// by earlier deployments, as an ObjectId. ObjectId values decode into
// Song.ID as their hex form.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// replacementDoc encodes song without its _id so a replace keeps the stored
// _id whatever its type.
func replacementDoc(song *domain.Song) (bson.M, error) {
	raw, err := bson.Marshal(song)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}

func (r *SongRepository) Get(ctx context.Context, id string) (*domain.Song, error) {
	var s domain.Song
	err := r.coll.FindOne(ctx, idFilter(id)).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SongRepository) Create(ctx context.Context, song *domain.Song) error {
	_, err := r.coll.InsertOne(ctx, song)
	return err
}

func (r *SongRepository) Update(ctx context.Context, song *domain.Song) error {
	doc, err := replacementDoc(song)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, idFilter(song.ID), doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrSongNotFound
	}
	return nil
}

func (r *SongRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrSongNotFound
	}
	return nil
}

func (r *SongRepository) All(ctx context.Context) ([]*domain.Song, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, err
	}
	var songs []*domain.Song
	if err := cur.All(ctx, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

func (r *SongRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *SongRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
