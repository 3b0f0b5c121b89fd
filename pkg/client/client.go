// Package client is a typed HTTP client for the song service API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the song route prefix, e.g. "http://localhost:5050/song".
	BaseURL string
	// Origin is sent on every request so writes pass the origin allow-list.
	Origin  string
	Timeout time.Duration
	// HTTPClient overrides the default transport.
	HTTPClient *http.Client
}

// Client calls the song service. It never retries.
type Client struct {
	baseURL    string
	origin     string
	httpClient *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		origin:     cfg.Origin,
		httpClient: httpClient,
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("song api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("song api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Pagination describes one page of the song listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// SongsResponse is one page of songs.
type SongsResponse struct {
	Data       []domain.Song `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// GroupPage is one page of a group view.
type GroupPage[T any] struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Data       []T `json:"data"`
}

// ListParams filters and pages the song listing. Zero values are omitted.
type ListParams struct {
	Genre  string
	Artist string
	Album  string
	Page   int
	Limit  int
	// Sort is the "-field" shorthand, e.g. "-createdAt".
	Sort      string
	SortField string
	SortOrder string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	set(v, "genre", p.Genre)
	set(v, "artist", p.Artist)
	set(v, "album", p.Album)
	setInt(v, "page", p.Page)
	setInt(v, "limit", p.Limit)
	set(v, "sort", p.Sort)
	set(v, "sortField", p.SortField)
	set(v, "sortOrder", p.SortOrder)
	return v
}

// GroupParams pages a group view.
type GroupParams struct {
	Page      int
	Limit     int
	SortField string
	SortOrder string
}

func (p GroupParams) values() url.Values {
	v := url.Values{}
	setInt(v, "page", p.Page)
	setInt(v, "limit", p.Limit)
	set(v, "sortField", p.SortField)
	set(v, "sortOrder", p.SortOrder)
	return v
}

func set(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, value int) {
	if value != 0 {
		v.Set(key, strconv.Itoa(value))
	}
}

// FetchSongs lists songs.
func (c *Client) FetchSongs(ctx context.Context, p ListParams) (*SongsResponse, error) {
	var out SongsResponse
	if err := c.do(ctx, http.MethodGet, "", p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSong fetches one song.
func (c *Client) GetSong(ctx context.Context, id string) (*domain.Song, error) {
	var out domain.Song
	if err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSong creates a song and returns the stored record.
func (c *Client) CreateSong(ctx context.Context, in domain.SongInput) (*domain.Song, error) {
	var out domain.Song
	if err := c.do(ctx, http.MethodPost, "", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSong patches a song and returns the merged record.
func (c *Client) UpdateSong(ctx context.Context, id string, patch domain.SongPatch) (*domain.Song, error) {
	var out domain.Song
	if err := c.do(ctx, http.MethodPatch, "/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSong deletes a song.
func (c *Client) DeleteSong(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, nil, nil)
}

// FetchStats returns the statistics snapshot.
func (c *Client) FetchStats(ctx context.Context) (*domain.Stats, error) {
	var out domain.Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchArtists returns one page of the per-artist view.
func (c *Client) FetchArtists(ctx context.Context, p GroupParams) (*GroupPage[domain.ArtistStats], error) {
	return fetchGroup[domain.ArtistStats](ctx, c, "/artists", p)
}

// FetchAlbums returns one page of the per-album view.
func (c *Client) FetchAlbums(ctx context.Context, p GroupParams) (*GroupPage[domain.AlbumStats], error) {
	return fetchGroup[domain.AlbumStats](ctx, c, "/albums", p)
}

// FetchGenres returns one page of the per-genre view.
func (c *Client) FetchGenres(ctx context.Context, p GroupParams) (*GroupPage[domain.GenreStats], error) {
	return fetchGroup[domain.GenreStats](ctx, c, "/genres", p)
}

func fetchGroup[T any](ctx context.Context, c *Client, path string, p GroupParams) (*GroupPage[T], error) {
	var out GroupPage[T]
	if err := c.do(ctx, http.MethodGet, path, p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Code = body.Code
		apiErr.RequestID = body.RequestID
	}
	return apiErr
}
