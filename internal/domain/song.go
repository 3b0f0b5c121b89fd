package domain

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Song is a catalog record.
type Song struct {
	ID          string     `json:"_id" bson:"_id"`
	Title       string     `json:"title" bson:"title" validate:"required"`
	Artist      string     `json:"artist" bson:"artist" validate:"required"`
	Album       string     `json:"album" bson:"album" validate:"required"`
	Genre       string     `json:"genre" bson:"genre" validate:"required"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty" bson:"releaseDate,omitempty"`
	PlayCount   int64      `json:"playCount" bson:"playCount" validate:"gte=0"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// SongInput is the body of a create request.
type SongInput struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	Genre       string `json:"genre"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	PlayCount   *int64 `json:"playCount,omitempty"`
}

// SongPatch is the body of an update request. Nil fields are left unchanged.
// An empty ReleaseDate clears the stored date.
type SongPatch struct {
	ID          *string `json:"_id,omitempty"`
	AltID       *string `json:"id,omitempty"`
	Title       *string `json:"title,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	Album       *string `json:"album,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	ReleaseDate *string `json:"releaseDate,omitempty"`
	PlayCount   *int64  `json:"playCount,omitempty"`
}

// Fields the validator reports by JSON name.
const (
	FieldID          = "_id"
	FieldReleaseDate = "releaseDate"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseReleaseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseReleaseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

// NewSong builds an unsaved song from a create request. The caller assigns
// the ID and timestamps.
func NewSong(in SongInput) (*Song, error) {
	s := &Song{
		Title:  in.Title,
		Artist: in.Artist,
		Album:  in.Album,
		Genre:  in.Genre,
	}
	if in.PlayCount != nil {
		s.PlayCount = *in.PlayCount
	}

	var invalid []string
	if strings.TrimSpace(in.ReleaseDate) != "" {
		d, err := ParseReleaseDate(in.ReleaseDate)
		if err != nil {
			invalid = append(invalid, FieldReleaseDate)
		} else {
			s.ReleaseDate = &d
		}
	}

	s.Normalize()
	if err := s.validate(invalid); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply merges p into s. The identifier cannot be reassigned: a body ID that
// differs from id is rejected.
func (p SongPatch) Apply(s *Song, id string) error {
	var invalid []string
	for _, bodyID := range []*string{p.ID, p.AltID} {
		if bodyID != nil && *bodyID != "" && *bodyID != id {
			invalid = append(invalid, FieldID)
			break
		}
	}

	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Artist != nil {
		s.Artist = *p.Artist
	}
	if p.Album != nil {
		s.Album = *p.Album
	}
	if p.Genre != nil {
		s.Genre = *p.Genre
	}
	if p.PlayCount != nil {
		s.PlayCount = *p.PlayCount
	}
	if p.ReleaseDate != nil {
		if strings.TrimSpace(*p.ReleaseDate) == "" {
			s.ReleaseDate = nil
		} else if d, err := ParseReleaseDate(*p.ReleaseDate); err != nil {
			invalid = append(invalid, FieldReleaseDate)
		} else {
			s.ReleaseDate = &d
		}
	}

	s.Normalize()
	return s.validate(invalid)
}

// Normalize trims surrounding whitespace from the string fields.
func (s *Song) Normalize() {
	s.Title = strings.TrimSpace(s.Title)
	s.Artist = strings.TrimSpace(s.Artist)
	s.Album = strings.TrimSpace(s.Album)
	s.Genre = strings.TrimSpace(s.Genre)
}

// Validate checks the required fields and the play count.
func (s *Song) Validate() error {
	return s.validate(nil)
}

func (s *Song) validate(invalid []string) error {
	fields := invalid
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if len(fields) > 0 {
		return NewValidationError(fields...)
	}
	return nil
}

// Touch sets UpdatedAt to now, never moving it backwards.
func (s *Song) Touch(now time.Time) {
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
}

// Clone returns a deep copy.
func (s *Song) Clone() *Song {
	c := *s
	if s.ReleaseDate != nil {
		d := *s.ReleaseDate
		c.ReleaseDate = &d
	}
	return &c
}
