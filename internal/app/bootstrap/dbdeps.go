// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratahabit/internal/app/tracking"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. It serves as
// the central place to store all database clients and backend connections
// that your application needs.
//
// The in-process tracking state lives here too: the StateCache and
// OverrideLedger are shared singletons that both the HTTP handlers
// (BuildHandler) and the background sweep job (Startup) need to see.
//
// The Shutdown hook is responsible for closing these connections gracefully
// when the application terminates.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Per-habit window/stat/streak cache
	StateCache *tracking.StateCache

	// Short-lived local overrides masking read-after-write staleness
	OverrideLedger *tracking.OverrideLedger
}
