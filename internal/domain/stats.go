package domain

// GenreStats is the per-genre breakdown.
type GenreStats struct {
	Genre      string   `json:"genre"`
	TotalSongs int      `json:"totalSongs"`
	Songs      []string `json:"songs"`
}

// ArtistStats is the per-artist breakdown. Albums are distinct, in the order
// they were first seen.
type ArtistStats struct {
	Artist     string   `json:"artist"`
	TotalSongs int      `json:"totalSongs"`
	AlbumCount int      `json:"albumCount"`
	Albums     []string `json:"albums"`
	Songs      []string `json:"songs"`
}

// AlbumStats is the per-album breakdown. Artist is the artist of the first
// song seen on the album.
type AlbumStats struct {
	Album      string   `json:"album"`
	Artist     string   `json:"artist"`
	TotalSongs int      `json:"totalSongs"`
	Songs      []string `json:"songs"`
}

// Stats is the statistics snapshot over the whole catalog.
type Stats struct {
	TotalSongs     int           `json:"totalSongs"`
	TotalArtists   int           `json:"totalArtists"`
	TotalAlbums    int           `json:"totalAlbums"`
	TotalGenres    int           `json:"totalGenres"`
	SongsPerGenre  []GenreStats  `json:"songsPerGenre"`
	SongsPerArtist []ArtistStats `json:"songsPerArtist"`
	SongsPerAlbum  []AlbumStats  `json:"songsPerAlbum"`
}
