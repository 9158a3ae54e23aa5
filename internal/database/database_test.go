package database

import (
	"context"
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections, "sqlite is pinned to one connection")
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "postgres",
			cfg:  config.Config{DBDriver: "postgres", DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "warbler"},
			want: "host=db port=5432 user=u password=p dbname=warbler sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  config.Config{DBDriver: "mysql", DBHost: "db", DBPort: "3306", DBUser: "u", DBPassword: "p", DBName: "warbler"},
			want: "u:p@tcp(db:3306)/warbler?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "sqlite",
			cfg:  config.Config{DBDriver: "sqlite", DBName: "warbler"},
			want: "file:warbler.db?_foreign_keys=1",
		},
		{
			name: "explicit dsn wins",
			cfg:  config.Config{DBDriver: "postgres", DBDSN: "postgres://x"},
			want: "postgres://x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(&tt.cfg))
		})
	}
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestApplySchema_SQLiteAutoMigrates(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", Env: "test", DBSchemaMode: SchemaModeHybrid}
	db, err := ConnectWithDialector(sqlite.Open("file:schema_test?mode=memory&cache=shared&_foreign_keys=1"), cfg)
	require.NoError(t, err)

	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	u := models.User{Username: "alice", Email: "a@example.com", Password: "x"}
	require.NoError(t, db.Create(&u).Error)
	assert.NotZero(t, u.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, u.ID).Error)
	assert.Equal(t, models.DefaultImageURL, stored.ImageURL)
	assert.Equal(t, "", stored.Bio)

	// Same nullability as the SQL migrations, so hybrid mode never relaxes them.
	cols, err := db.Migrator().ColumnTypes(&models.User{})
	require.NoError(t, err)
	notNull := map[string]bool{"bio": true, "image_url": true, "header_image_url": true, "created_at": true}
	for _, col := range cols {
		if !notNull[col.Name()] {
			continue
		}
		nullable, ok := col.Nullable()
		require.True(t, ok, col.Name())
		assert.False(t, nullable, "%s should be NOT NULL", col.Name())
		delete(notNull, col.Name())
	}
	assert.Empty(t, notNull)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{"postgres hybrid dev", config.Config{DBDriver: "postgres", Env: "development"}, true, true, false},
		{"postgres hybrid prod", config.Config{DBDriver: "postgres", Env: "production"}, true, false, false},
		{"postgres sql", config.Config{DBDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"postgres auto prod refused", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"postgres auto prod allowed", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"sqlite hybrid", config.Config{DBDriver: "sqlite"}, false, true, false},
		{"mysql sql refused", config.Config{DBDriver: "mysql", DBSchemaMode: "sql"}, false, false, true},
		{"unknown mode", config.Config{DBDriver: "postgres", DBSchemaMode: "magic"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, runSQL)
			assert.Equal(t, tt.runAuto, runAuto)
		})
	}
}
