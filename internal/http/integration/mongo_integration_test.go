package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/inventoryhub/internal/db"
	"github.com/geocoder89/inventoryhub/internal/observability"
	mongorepo "github.com/geocoder89/inventoryhub/internal/repo/mongo"
	"github.com/geocoder89/inventoryhub/internal/repo/observed"
	"github.com/geocoder89/inventoryhub/internal/security"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	client, err := db.NewMongoClient(db.MongoConfig{
		URI:                    uri,
		TLS:                    os.Getenv("TEST_MONGO_TLS") == "true",
		ServerSelectionTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}

	database := client.Database(fmt.Sprintf("inventory_test_%d", time.Now().UnixNano()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = database.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return database
}

func TestMongoIntegration_InventoryFlow(t *testing.T) {
	database := setupMongo(t)
	ctx := context.Background()

	itemsRepo := mongorepo.NewItemsRepo(database)
	usersRepo := mongorepo.NewUsersRepo(database)

	if err := usersRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("users indexes: %v", err)
	}
	if err := itemsRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("items indexes: %v", err)
	}

	prom := observability.NewProm()
	items := observed.NewItems(itemsRepo, prom, "mongodb")
	users := observed.NewUsers(usersRepo, prom, "mongodb")

	runInventoryFlow(t, newRouter(items, users))
}

func TestMongoIntegration_LegacyMixedCaseUserCanLogIn(t *testing.T) {
	database := setupMongo(t)
	ctx := context.Background()

	usersRepo := mongorepo.NewUsersRepo(database)
	if err := usersRepo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("users indexes: %v", err)
	}

	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	// written by an older client: mixed-case email, binary hash, no role
	_, err = database.Collection("users").InsertOne(ctx, bson.D{
		{Key: "_id", Value: bson.NewObjectID()},
		{Key: "username", Value: "legacy"},
		{Key: "email", Value: "Legacy.User@Example.com"},
		{Key: "password", Value: bson.Binary{Data: []byte(hash)}},
	})
	if err != nil {
		t.Fatalf("insert legacy user: %v", err)
	}

	prom := observability.NewProm()
	router := newRouter(
		observed.NewItems(mongorepo.NewItemsRepo(database), prom, "mongodb"),
		observed.NewUsers(usersRepo, prom, "mongodb"),
	)

	w := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"legacy.user@example.com","password":"password123"}`, "")
	expectStatus(t, "legacy login", w, http.StatusOK)

	w = doRequest(router, http.MethodPost, "/api/auth/register", `{"username":"dup","email":"LEGACY.user@example.com","password":"password123"}`, "")
	expectStatus(t, "register over legacy email", w, http.StatusBadRequest)
}
