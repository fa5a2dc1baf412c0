package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoOpts struct {
	URI            string        // e.g. mongodb://localhost:27017
	ConnectTimeout time.Duration // default 5s
}

// NewMongoClient connects and pings so a dead server fails at startup, not
// on the first append.
func NewMongoClient(opts MongoOpts) (*mongo.Client, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("empty MongoDB URI")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}
