// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when realtime fan-out is disabled.
	Redis *redis.Client

	// runtime carries what Startup builds for BuildHandler and Shutdown.
	// DBDeps is passed by value between hooks, so it is a pointer.
	runtime *runtimeState
}
