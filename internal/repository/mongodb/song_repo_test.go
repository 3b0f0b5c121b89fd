package mongodb

import (
	"testing"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterDoc(t *testing.T) {
	assert.Equal(t, bson.M{}, filterDoc(repository.SongFilter{}))
	assert.Equal(t,
		bson.M{"genre": "Rock", "album": "Low"},
		filterDoc(repository.SongFilter{Genre: "Rock", Album: "Low"}),
	)
}

func TestSortDoc(t *testing.T) {
	assert.Equal(t,
		bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}},
		sortDoc(repository.ListOptions{SortField: "createdAt", Descending: true}),
	)
	assert.Equal(t,
		bson.D{{Key: "playCount", Value: 1}, {Key: "_id", Value: 1}},
		sortDoc(repository.ListOptions{SortField: "playCount"}),
	)
	assert.Equal(t,
		bson.D{{Key: "_id", Value: -1}},
		sortDoc(repository.ListOptions{Descending: true}),
	)
}

func TestIDFilter(t *testing.T) {
	t.Run("hex id matches string or ObjectId", func(t *testing.T) {
		oid := primitive.NewObjectID()
		assert.Equal(t,
			bson.M{"_id": bson.M{"$in": bson.A{oid.Hex(), oid}}},
			idFilter(oid.Hex()),
		)
	})

	t.Run("uuid matches string only", func(t *testing.T) {
		id := "6f1c2f6e-4f0e-4d8c-9a53-8f1f1c1d2e3f"
		assert.Equal(t, bson.M{"_id": id}, idFilter(id))
	})
}

func TestObjectIDDecodesAsHex(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"_id": oid, "title": "Heroes", "artist": "Bowie"})
	require.NoError(t, err)

	var s domain.Song
	require.NoError(t, bson.Unmarshal(raw, &s))
	assert.Equal(t, oid.Hex(), s.ID)
	assert.Equal(t, "Heroes", s.Title)
}

func TestReplacementDoc_OmitsID(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	doc, err := replacementDoc(&domain.Song{
		ID: "abc", Title: "Low", Artist: "Bowie", Album: "Low", Genre: "Rock",
		PlayCount: 3, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	assert.NotContains(t, doc, "_id")
	assert.Equal(t, "Low", doc["title"])
	assert.Equal(t, int64(3), doc["playCount"])
}
