package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	cerrors "github.com/storehouse-ng/storefront-chat/internal/errors"
)

const (
	storesCollection   = "stores"
	productsCollection = "products"
)

type storeDoc struct {
	UserID         any             `bson:"user_id"`
	StoreSlug      string          `bson:"store_slug"`
	BusinessName   string          `bson:"business_name"`
	AboutUs        string          `bson:"about_us"`
	Address        string          `bson:"address"`
	WhatsAppNumber string          `bson:"whatsapp_number"`
	BusinessHours  string          `bson:"business_hours"`
	DeliveryAreas  string          `bson:"delivery_areas"`
	DeliveryTime   string          `bson:"delivery_time"`
	ReturnPolicy   string          `bson:"return_policy"`
	PaymentMethods []PaymentMethod `bson:"payment_methods"`
}

type productDoc struct {
	ID             any            `bson:"_id"`
	Name           string         `bson:"name"`
	SellingPrice   int64          `bson:"selling_price"`
	Quantity       int            `bson:"quantity"`
	Description    string         `bson:"description"`
	Category       string         `bson:"category"`
	Specifications map[string]any `bson:"specifications"`
}

// MongoProvider reads store contexts from the storefront MongoDB.
type MongoProvider struct {
	db     *mongo.Database
	logger zerolog.Logger
}

// NewMongoProvider creates a provider over db.
func NewMongoProvider(db *mongo.Database, logger zerolog.Logger) *MongoProvider {
	return &MongoProvider{
		db:     db,
		logger: logger.With().Str("component", "catalog-mongo").Logger(),
	}
}

// ConnectMongo connects to uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", mapMongoErr(err))
	}
	return client, client.Database(database), nil
}

// Load fetches the public store with slug and its public products, ordered by name.
func (p *MongoProvider) Load(ctx context.Context, slug string) (*StoreContext, error) {
	var doc storeDoc
	err := p.db.Collection(storesCollection).
		FindOne(ctx, bson.M{"store_slug": slug, "is_public": true}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load store %q: %w", slug, mapMongoErr(err))
	}

	products, err := p.loadProducts(ctx, doc.UserID)
	if err != nil {
		p.logger.Warn().Err(err).Str("slug", slug).Msg("product query failed, continuing without products")
		products = nil
	}

	sc := &StoreContext{
		Slug: slug,
		Profile: Profile{
			BusinessName:  doc.BusinessName,
			AboutUs:       doc.AboutUs,
			Address:       doc.Address,
			WhatsApp:      doc.WhatsAppNumber,
			BusinessHours: doc.BusinessHours,
		},
		Policies: Policies{
			Delivery:       Delivery{Areas: doc.DeliveryAreas, Time: doc.DeliveryTime},
			Returns:        doc.ReturnPolicy,
			PaymentMethods: doc.PaymentMethods,
		},
		Products: products,
		FAQ:      ExtractFAQ(doc.AboutUs),
	}

	p.logger.Debug().
		Str("slug", slug).
		Int("products", len(sc.Products)).
		Int("in_stock", len(sc.InStock())).
		Msg("store context loaded")
	return sc, nil
}

func (p *MongoProvider) loadProducts(ctx context.Context, userID any) ([]Product, error) {
	cur, err := p.db.Collection(productsCollection).Find(ctx,
		bson.M{"user_id": userID, "is_public": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)

	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapMongoErr(err)
	}

	products := make([]Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, Product{
			ID:             idString(d.ID),
			Name:           d.Name,
			Price:          d.SellingPrice,
			Quantity:       d.Quantity,
			Description:    d.Description,
			Category:       d.Category,
			Specifications: d.Specifications,
		})
	}
	return products, nil
}

// Ping checks the primary is reachable.
func (p *MongoProvider) Ping(ctx context.Context) error {
	if err := p.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return mapMongoErr(err)
	}
	return nil
}

// mapMongoErr tags driver errors with the service taxonomy so callers can retry transient ones.
func mapMongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", cerrors.ErrTimeout, err)
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", cerrors.ErrUnavailable, err)
	default:
		return err
	}
}

func idString(id any) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
