package postgis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/txn2/mcp-postgis/pkg/query"
)

func TestHandleListTables(t *testing.T) {
	tk, provider, _ := newTestToolkit(t)
	provider.tables = []query.TableInfo{
		{Schema: "public", Table: "buildings", GeometryType: "POLYGON", SRID: 4326},
		{Schema: "public", Table: "roads", GeometryType: "LINESTRING", SRID: 4326},
	}

	result, _, err := tk.handleListTables(context.Background(), nil, listTablesInput{})
	if err != nil {
		t.Fatalf("handleListTables() error = %v", err)
	}

	var output listTablesOutput
	decodeResult(t, result, &output)

	if !output.Success {
		t.Error("Success = false")
	}
	if output.Count != 2 {
		t.Errorf("Count = %d, want 2", output.Count)
	}
	if len(output.Tables) != 2 || output.Tables[0].Table != "buildings" {
		t.Errorf("Tables = %v", output.Tables)
	}
	if provider.gotSchema != "" {
		t.Errorf("schema passed to provider = %q, want empty (all schemas)", provider.gotSchema)
	}
}

func TestHandleListTables_SchemaFilter(t *testing.T) {
	tk, provider, _ := newTestToolkit(t)
	provider.tables = []query.TableInfo{}

	if _, _, err := tk.handleListTables(context.Background(), nil, listTablesInput{Schema: "gis"}); err != nil {
		t.Fatalf("handleListTables() error = %v", err)
	}
	if provider.gotSchema != "gis" {
		t.Errorf("schema passed to provider = %q, want gis", provider.gotSchema)
	}
}

func TestHandleListTables_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		tk, provider, _ := newTestToolkit(t)
		provider.tablesErr = errors.New("connection refused")

		result, _, err := tk.handleListTables(context.Background(), nil, listTablesInput{})
		if err != nil {
			t.Fatalf("handleListTables() error = %v", err)
		}
		if msg := errorMessage(t, result); !strings.Contains(msg, "connection refused") {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("no provider", func(t *testing.T) {
		tk, err := New(testToolkitName, Config{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		result, _, callErr := tk.handleListTables(context.Background(), nil, listTablesInput{})
		if callErr != nil {
			t.Fatalf("handleListTables() error = %v", callErr)
		}
		if msg := errorMessage(t, result); !strings.Contains(msg, "no query provider") {
			t.Errorf("error = %q", msg)
		}
	})
}

func TestHandleTableInfo(t *testing.T) {
	tk, provider, _ := newTestToolkit(t)
	provider.tableSchema = &query.TableSchema{
		Columns: []query.Column{
			{Name: "id", Type: "integer", Nullable: false},
			{Name: "geom", Type: "geometry", Nullable: true},
		},
		GeometryColumn: "geom",
		GeometryType:   "POLYGON",
		SRID:           4326,
		RowEstimate:    5432,
	}

	result, _, err := tk.handleTableInfo(context.Background(), nil, tableInput{Table: "buildings"})
	if err != nil {
		t.Fatalf("handleTableInfo() error = %v", err)
	}

	var output tableInfoOutput
	decodeResult(t, result, &output)

	if !output.Success {
		t.Error("Success = false")
	}
	if output.Schema != "public" {
		t.Errorf("Schema = %q, want public (default)", output.Schema)
	}
	if output.Table != "buildings" {
		t.Errorf("Table = %q, want buildings", output.Table)
	}
	if len(output.Columns) != 2 {
		t.Errorf("len(Columns) = %d, want 2", len(output.Columns))
	}
	if output.GeometryColumn != "geom" || output.SRID != 4326 {
		t.Errorf("geometry = %q srid %d", output.GeometryColumn, output.SRID)
	}
	if output.RowEstimate != 5432 {
		t.Errorf("RowEstimate = %d, want 5432", output.RowEstimate)
	}
	if provider.gotTable.Schema != "public" || provider.gotTable.Table != "buildings" {
		t.Errorf("provider asked for %v", provider.gotTable)
	}
}

func TestHandleTableInfo_SchemaOverride(t *testing.T) {
	tk, provider, _ := newTestToolkit(t)
	provider.tableSchema = &query.TableSchema{}

	if _, _, err := tk.handleTableInfo(context.Background(), nil, tableInput{Table: "parcels", Schema: "gis"}); err != nil {
		t.Fatalf("handleTableInfo() error = %v", err)
	}
	if provider.gotTable.Schema != "gis" {
		t.Errorf("schema passed to provider = %q, want gis", provider.gotTable.Schema)
	}
}

func TestHandleTableInfo_Errors(t *testing.T) {
	t.Run("missing table", func(t *testing.T) {
		tk, _, _ := newTestToolkit(t)
		result, _, err := tk.handleTableInfo(context.Background(), nil, tableInput{})
		if err != nil {
			t.Fatalf("handleTableInfo() error = %v", err)
		}
		if msg := errorMessage(t, result); !strings.Contains(msg, "table is required") {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		tk, provider, _ := newTestToolkit(t)
		provider.schemaErr = errors.New("table not found")

		result, _, err := tk.handleTableInfo(context.Background(), nil, tableInput{Table: "nope"})
		if err != nil {
			t.Fatalf("handleTableInfo() error = %v", err)
		}
		if msg := errorMessage(t, result); !strings.Contains(msg, "table not found") {
			t.Errorf("error = %q", msg)
		}
	})
}

func TestHandleDatabaseInfo(t *testing.T) {
	tk, provider, _ := newTestToolkit(t)
	provider.dbInfo = &query.DatabaseInfo{
		Database:       "gisdb",
		User:           "app",
		ServerVersion:  "16.2",
		PostGISVersion: "3.4.2",
		SpatialTables:  7,
		Extensions:     []string{"plpgsql", "postgis"},
	}

	result, _, err := tk.handleDatabaseInfo(context.Background(), nil, databaseInfoInput{})
	if err != nil {
		t.Fatalf("handleDatabaseInfo() error = %v", err)
	}

	var output databaseInfoOutput
	decodeResult(t, result, &output)

	if !output.Success {
		t.Error("Success = false")
	}
	if output.Database != "gisdb" || output.User != "app" {
		t.Errorf("Database = %q User = %q", output.Database, output.User)
	}
	if output.PostGISVersion != "3.4.2" {
		t.Errorf("PostGISVersion = %q, want 3.4.2", output.PostGISVersion)
	}
	if output.SpatialTables != 7 {
		t.Errorf("SpatialTables = %d, want 7", output.SpatialTables)
	}
	if len(output.Extensions) != 2 || output.Extensions[1] != "postgis" {
		t.Errorf("Extensions = %v", output.Extensions)
	}
}

func TestHandleDatabaseInfo_Error(t *testing.T) {
	tk, provider, _ := newTestToolkit(t)
	provider.dbInfoErr = errors.New("permission denied")

	result, _, err := tk.handleDatabaseInfo(context.Background(), nil, databaseInfoInput{})
	if err != nil {
		t.Fatalf("handleDatabaseInfo() error = %v", err)
	}
	if msg := errorMessage(t, result); !strings.Contains(msg, "permission denied") {
		t.Errorf("error = %q", msg)
	}
}

func TestHandleSpatialExtent(t *testing.T) {
	tk, provider, _ := newTestToolkit(t)
	provider.extent = &query.Extent{MinX: 120.1, MinY: 30.1, MaxX: 120.9, MaxY: 30.8, SRID: 4326}

	result, _, err := tk.handleSpatialExtent(context.Background(), nil, tableInput{Table: "buildings"})
	if err != nil {
		t.Fatalf("handleSpatialExtent() error = %v", err)
	}

	var output spatialExtentOutput
	decodeResult(t, result, &output)

	if !output.Success {
		t.Error("Success = false")
	}
	if output.Schema != "public" || output.Table != "buildings" {
		t.Errorf("identifier = %q.%q", output.Schema, output.Table)
	}
	if output.Extent == nil {
		t.Fatal("Extent is nil")
	}
	if output.Extent.MaxX != 120.9 || output.Extent.SRID != 4326 {
		t.Errorf("Extent = %+v", output.Extent)
	}
	if provider.gotTable.Schema != "public" || provider.gotTable.Table != "buildings" {
		t.Errorf("provider asked for %v", provider.gotTable)
	}
}

func TestHandleSpatialExtent_Errors(t *testing.T) {
	t.Run("missing table", func(t *testing.T) {
		tk, _, _ := newTestToolkit(t)
		result, _, err := tk.handleSpatialExtent(context.Background(), nil, tableInput{})
		if err != nil {
			t.Fatalf("handleSpatialExtent() error = %v", err)
		}
		if msg := errorMessage(t, result); !strings.Contains(msg, "table is required") {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		tk, provider, _ := newTestToolkit(t)
		provider.extentErr = errors.New("no geometry column")

		result, _, err := tk.handleSpatialExtent(context.Background(), nil, tableInput{Table: "flat"})
		if err != nil {
			t.Fatalf("handleSpatialExtent() error = %v", err)
		}
		if msg := errorMessage(t, result); !strings.Contains(msg, "no geometry column") {
			t.Errorf("error = %q", msg)
		}
	})
}
