// Command bankapi runs the personal-banking service: accounts and balances
// in PostgreSQL, the transaction log in MongoDB, and an optional RabbitMQ
// feed of committed ledger events archived for audit.
//
// Key components:
// - PostgreSQL: account identity and balances, mutated only by the ledger engine.
// - MongoDB: immutable transaction records with post-event balance snapshots.
// - RabbitMQ: best-effort audit event feed consumed into an archive collection.
// - Gin: HTTP API for auth, deposits, withdrawals, transfers and history.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bankapi/api"
	"bankapi/ledger"
	"bankapi/queue"
	"bankapi/store"
)

func main() {
	ctx := context.Background()

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Fatal(err)
	}
	defer mongoClient.Disconnect(ctx)

	mongoDB := mongoClient.Database("banking_app")

	accounts := store.NewPostgresAccounts(db)
	if err := accounts.Init(ctx); err != nil {
		log.Fatal(err)
	}

	transactions := store.NewMongoTransactions(mongoDB.Collection("transactions"))
	if err := transactions.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}

	// RabbitMQ is optional: without it the service runs with no audit feed.
	var events ledger.EventPublisher
	if uri := os.Getenv("RABBITMQ_URI"); uri != "" {
		rabbitMQ, err := queue.NewRabbitMQ(uri)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ

		consumer := queue.NewAuditConsumer(rabbitMQ, mongoDB.Collection("audit_events"))
		go func() {
			if err := consumer.Start(); err != nil {
				log.Printf("audit consumer stopped: %v", err)
			}
		}()
	}

	engine := ledger.New(accounts, transactions, events)

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		log.Fatal("SECRET_KEY is required")
	}

	server := &api.Server{
		Engine:       engine,
		Accounts:     accounts,
		Transactions: transactions,
		Secret:       []byte(secret),
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	log.Fatal(server.Router().Run(":" + port))
}
