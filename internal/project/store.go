// Package project persists map areas in a SQLite project database so a
// user can create an area once and export it repeatedly.
package project

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed collection of map areas.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the project database at path and applies any
// pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open project database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// migrateLogger routes migration progress through the package logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// Save inserts a new map area. A name collision fails with
// *maparea.ConfigurationError before touching the table.
func (s *Store) Save(area *maparea.MapArea) error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM map_areas WHERE name = ?", area.Name).Scan(&count); err != nil {
		return fmt.Errorf("check area name: %w", err)
	}
	if count > 0 {
		return &maparea.ConfigurationError{Field: "name", Reason: fmt.Sprintf("area %q already exists", area.Name)}
	}

	_, err := s.db.Exec(`
		INSERT INTO map_areas (id, name, lat, lon, extent_m, segments, rotation_deg, resolution, source, improve_gps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		area.ID, area.Name, area.Centroid.Lat, area.Centroid.Lon,
		area.ExtentMeters, area.Segments, area.RotationDeg,
		area.Resolution, string(area.Source), area.ImproveGPS,
	)
	if err != nil {
		return fmt.Errorf("save area %q: %w", area.Name, err)
	}
	return nil
}

// ErrNotFound reports a lookup for an area the store does not hold.
var ErrNotFound = errors.New("map area not found")

// Get loads one map area by name.
func (s *Store) Get(name string) (*maparea.MapArea, error) {
	row := s.db.QueryRow(`
		SELECT id, name, lat, lon, extent_m, segments, rotation_deg, resolution, source, improve_gps
		FROM map_areas WHERE name = ?`, name)

	area, err := scanArea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("area %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load area %q: %w", name, err)
	}
	return area, nil
}

// List returns all map areas sorted by name.
func (s *Store) List() ([]*maparea.MapArea, error) {
	rows, err := s.db.Query(`
		SELECT id, name, lat, lon, extent_m, segments, rotation_deg, resolution, source, improve_gps
		FROM map_areas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var areas []*maparea.MapArea
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

// Delete removes a map area by name.
func (s *Store) Delete(name string) error {
	res, err := s.db.Exec("DELETE FROM map_areas WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete area %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("area %q: %w", name, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArea(row rowScanner) (*maparea.MapArea, error) {
	var a maparea.MapArea
	var source string
	err := row.Scan(
		&a.ID, &a.Name, &a.Centroid.Lat, &a.Centroid.Lon,
		&a.ExtentMeters, &a.Segments, &a.RotationDeg,
		&a.Resolution, &source, &a.ImproveGPS,
	)
	if err != nil {
		return nil, err
	}
	a.Source = maparea.SourceKind(source)
	return &a, nil
}
