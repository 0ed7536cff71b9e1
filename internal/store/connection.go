package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoOptions struct {
	URI            string
	Database       string
	AppName        string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

func (o *MongoOptions) withDefaults() {
	if o.AppName == "" {
		o.AppName = "basket-service"
	}
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 50
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
}

// ConnectMongoDB opens the client shared by every MongoStore call and checks
// the primary is reachable.
func ConnectMongoDB(ctx context.Context, o MongoOptions) (*mongo.Database, error) {
	o.withDefaults()

	clientOpts := options.Client().
		ApplyURI(o.URI).
		SetAppName(o.AppName).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ConnectTimeout / 2).
		SetMaxPoolSize(o.MaxPoolSize).
		SetMinPoolSize(o.MaxPoolSize / 10).
		// Nested item metadata decodes as plain maps, the same shape JSON gives.
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, unavailable("connect mongo", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable("ping mongo", err)
	}

	return client.Database(o.Database), nil
}
