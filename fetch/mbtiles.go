package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"globe/tile"
)

//FormatPBF mbtiles format of vector tiles
const FormatPBF = "pbf"

//MBTilesSource reads tiles from a local .mbtiles file, standing in for the
//remote tile service. The file is opened read-only.
type MBTilesSource struct {
	path string
	db   *sql.DB
	stmt *sql.Stmt
}

//OpenMBTiles opens path and prepares the tile lookup.
func OpenMBTiles(path string) (*MBTilesSource, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, err
	}
	stmt, err := db.Prepare("select tile_data from tiles where zoom_level = ? and tile_column = ? and tile_row = ?;")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open mbtiles %s: %w", path, err)
	}
	s := &MBTilesSource{path: path, db: db, stmt: stmt}
	meta, err := s.Metadata()
	if err != nil {
		s.Close()
		return nil, err
	}
	if f := meta["format"]; f != "" && f != FormatPBF {
		s.Close()
		return nil, fmt.Errorf("open mbtiles %s: unsupported tile format %q, want %s", path, f, FormatPBF)
	}
	return s, nil
}

//Metadata name/value pairs of the metadata table; empty when the file has
//none.
func (s *MBTilesSource) Metadata() (map[string]string, error) {
	meta := make(map[string]string)
	rows, err := s.db.Query("select name, value from metadata;")
	if err != nil {
		// tiles-only files are still readable
		if strings.Contains(err.Error(), "no such table") {
			return meta, nil
		}
		return nil, fmt.Errorf("read mbtiles %s metadata: %w", s.path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		meta[name] = value
	}
	return meta, rows.Err()
}

// flipY converts an xyz row to the tms row mbtiles stores.
func flipY(id tile.ID) uint32 {
	return uint32(1)<<id.Zoom() - 1 - id.Y
}

//Fetch reads one tile; a missing row is an empty tile.
func (s *MBTilesSource) Fetch(ctx context.Context, id tile.ID) ([]byte, error) {
	var data []byte
	err := s.stmt.QueryRowContext(ctx, id.Zoom(), id.X, flipY(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if c := cancelled(ctx); c != nil {
			return nil, c
		}
		return nil, &TransportError{URL: s.path + "#" + id.String(), Err: err}
	}
	return data, nil
}

//Close releases the database.
func (s *MBTilesSource) Close() error {
	s.stmt.Close()
	return s.db.Close()
}
