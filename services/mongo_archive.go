package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"stockwatch_backend/models"
)

// MongoDB archive constants
const (
	MongoDBName             = "stockwatch"
	MongoPriceCollection    = "price_snapshots"
	MongoCycleLogCollection = "cycle_log"
	MongoConnectTimeout     = 10 * time.Second
	MongoOperationTimeout   = 15 * time.Second
)

// MongoArchive mirrors daily price snapshots and cycle summaries into a
// document store for offline analysis. Entirely optional: with no URI
// configured every call is a no-op, and the relational store stays the
// system of record either way.
type MongoArchive struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger
	enabled  bool
}

// mongoPriceSnapshot is the per-symbol price document
type mongoPriceSnapshot struct {
	Symbol    string          `bson:"_id"`
	UpdatedAt time.Time       `bson:"updated_at"`
	BarCount  int             `bson:"bar_count"`
	Bars      []mongoPriceBar `bson:"bars"`
}

type mongoPriceBar struct {
	Date   time.Time `bson:"date"`
	Open   string    `bson:"open"`
	High   string    `bson:"high"`
	Low    string    `bson:"low"`
	Close  string    `bson:"close"`
	Volume int64     `bson:"volume"`
}

// NewMongoArchive connects to MongoDB when a URI is configured. An empty URI
// yields a disabled archive rather than an error.
func NewMongoArchive(uri string, logger *zap.Logger) (*MongoArchive, error) {
	if uri == "" {
		logger.Info("MONGODB_URI not set, price archiving disabled")
		return &MongoArchive{logger: logger}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), MongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	logger.Info("MongoDB archive connected", zap.String("database", MongoDBName))
	return &MongoArchive{
		client:   client,
		database: client.Database(MongoDBName),
		logger:   logger,
		enabled:  true,
	}, nil
}

// Enabled reports whether archiving is active
func (m *MongoArchive) Enabled() bool {
	return m.enabled
}

// ArchiveDailyBars upserts the latest bars for one symbol as a single document
func (m *MongoArchive) ArchiveDailyBars(ctx context.Context, symbol string, bars []models.StockPrice) error {
	if !m.enabled {
		return nil
	}

	doc := mongoPriceSnapshot{
		Symbol:    symbol,
		UpdatedAt: time.Now(),
		BarCount:  len(bars),
		Bars:      make([]mongoPriceBar, 0, len(bars)),
	}
	for _, bar := range bars {
		doc.Bars = append(doc.Bars, mongoPriceBar{
			Date:   bar.Date,
			Open:   bar.Open.String(),
			High:   bar.High.String(),
			Low:    bar.Low.String(),
			Close:  bar.Close.String(),
			Volume: bar.Volume,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, MongoOperationTimeout)
	defer cancel()

	_, err := m.database.Collection(MongoPriceCollection).ReplaceOne(
		ctx,
		bson.M{"_id": symbol},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

// ArchiveCycleLog appends one document per evaluation cycle
func (m *MongoArchive) ArchiveCycleLog(ctx context.Context, status string, alertsChecked, symbolsResolved, alertsTriggered int) error {
	if !m.enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, MongoOperationTimeout)
	defer cancel()

	_, err := m.database.Collection(MongoCycleLogCollection).InsertOne(ctx, bson.M{
		"at":               time.Now(),
		"status":           status,
		"alerts_checked":   alertsChecked,
		"symbols_resolved": symbolsResolved,
		"alerts_triggered": alertsTriggered,
	})
	return err
}

// Close disconnects the archive client
func (m *MongoArchive) Close(ctx context.Context) error {
	if !m.enabled {
		return nil
	}
	return m.client.Disconnect(ctx)
}
