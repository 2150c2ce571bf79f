//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/hashicorp-forge/recipebox/internal/migrate"
	"github.com/hashicorp-forge/recipebox/pkg/database"
	"github.com/hashicorp-forge/recipebox/pkg/models"
	"github.com/hashicorp-forge/recipebox/pkg/resource"
)

func TestStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("recipebox_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer func() {
		_ = pgContainer.Terminate(ctx)
	}()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(database.Config{
		Driver: database.DriverPostgres,
		DSN:    dsn,
	}, nil)
	require.NoError(t, err)
	defer database.Close(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, migrate.RunMigrations(sqlDB, database.DriverPostgres))

	s := New(db, nil)
	id, err := s.Insert(ctx, &models.Recipe{Title: "Chili"})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceChildren(ctx, id,
		[]models.Ingredient{{Item: "beans", Quantity: 2}},
		[]models.Instruction{{Text: "simmer"}},
	))

	n, err := s.Delete(ctx, resource.Recipes, id, Predicate{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := s.Count(ctx, resource.Ingredients, Predicate{})
	require.NoError(t, err)
	assert.Zero(t, left)
}
