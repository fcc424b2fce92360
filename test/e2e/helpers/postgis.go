//go:build integration

package helpers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartPostGIS starts a PostGIS testcontainer and returns its DSN.
// The container is automatically terminated when the test completes.
func StartPostGIS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgis/postgis:16-3.4-alpine",
		postgres.WithDatabase("gisdb"),
		postgres.WithUsername("gis"),
		postgres.WithPassword("gis"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("starting postgis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting postgis connection string: %v", err)
	}
	return dsn
}

// OpenDB opens a database handle that closes with the test.
func OpenDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeedSpatialData creates the spatial fixture tables. Everything centers
// on 120.5,30.2: buildings has one point at the origin, one ~290m east
// (inside a 500m radius), and one ~38km east (outside it); roads carries
// two linestrings for buffer tests and parcels two polygons of clearly
// different sizes for area tests.
func SeedSpatialData(t *testing.T, dsn string) {
	t.Helper()
	db := OpenDB(t, dsn)

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE TABLE buildings (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			geom geometry(Point, 4326)
		)`,
		`INSERT INTO buildings (name, geom) VALUES
			('city hall', ST_SetSRID(ST_MakePoint(120.5, 30.2), 4326)),
			('east library', ST_SetSRID(ST_MakePoint(120.503, 30.2), 4326)),
			('airport', ST_SetSRID(ST_MakePoint(120.9, 30.2), 4326))`,
		`CREATE TABLE roads (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			geom geometry(LineString, 4326)
		)`,
		`INSERT INTO roads (name, geom) VALUES
			('ring road', ST_GeomFromText('LINESTRING(120.49 30.19, 120.51 30.21)', 4326)),
			('harbor road', ST_GeomFromText('LINESTRING(120.52 30.18, 120.54 30.20)', 4326))`,
		`CREATE TABLE parcels (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			geom geometry(Polygon, 4326)
		)`,
		`INSERT INTO parcels (name, geom) VALUES
			('central park', ST_GeomFromText(
				'POLYGON((120.50 30.20, 120.51 30.20, 120.51 30.21, 120.50 30.21, 120.50 30.20))', 4326)),
			('plaza', ST_GeomFromText(
				'POLYGON((120.520 30.200, 120.522 30.200, 120.522 30.202, 120.520 30.202, 120.520 30.200))', 4326))`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seeding spatial data: %v\nstatement: %s", err, stmt)
		}
	}
}
