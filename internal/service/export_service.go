package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yohanna4/song-manager/internal/domain"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of the exported workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook sheet names.
const (
	SheetSummary = "Summary"
	SheetGenres  = "Genres"
	SheetArtists = "Artists"
	SheetAlbums  = "Albums"
)

// ExportService renders the statistics snapshot as a spreadsheet.
type ExportService struct {
	stats *StatsService
}

func NewExportService(stats *StatsService) *ExportService {
	return &ExportService{stats: stats}
}

// ExportStats computes a fresh snapshot and returns it as an xlsx workbook.
func (s *ExportService) ExportStats(ctx context.Context) ([]byte, error) {
	stats, err := s.stats.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return StatsWorkbook(stats)
}

// StatsWorkbook writes one sheet per breakdown plus a summary sheet.
func StatsWorkbook(stats *domain.Stats) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Total songs", stats.TotalSongs},
		{"Total artists", stats.TotalArtists},
		{"Total albums", stats.TotalAlbums},
		{"Total genres", stats.TotalGenres},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}

	genres := [][]interface{}{{"Genre", "Total songs", "Songs"}}
	for _, g := range stats.SongsPerGenre {
		genres = append(genres, []interface{}{g.Genre, g.TotalSongs, strings.Join(g.Songs, ", ")})
	}
	artists := [][]interface{}{{"Artist", "Total songs", "Album count", "Albums", "Songs"}}
	for _, a := range stats.SongsPerArtist {
		artists = append(artists, []interface{}{a.Artist, a.TotalSongs, a.AlbumCount, strings.Join(a.Albums, ", "), strings.Join(a.Songs, ", ")})
	}
	albums := [][]interface{}{{"Album", "Artist", "Total songs", "Songs"}}
	for _, a := range stats.SongsPerAlbum {
		albums = append(albums, []interface{}{a.Album, a.Artist, a.TotalSongs, strings.Join(a.Songs, ", ")})
	}

	for _, sheet := range []struct {
		name string
		rows [][]interface{}
	}{
		{SheetGenres, genres},
		{SheetArtists, artists},
		{SheetAlbums, albums},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}

	width := len(rows[0])
	last, _ := excelize.ColumnNumberToName(width)
	if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last+"1", headerStyle)
}
