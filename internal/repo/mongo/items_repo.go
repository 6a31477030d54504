package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const itemsCollection = "items"

type itemDoc struct {
	ID          bson.ObjectID `bson:"_id"`
	Name        string        `bson:"name"`
	ItemCode    string        `bson:"item_code"`
	Category    string        `bson:"category"`
	Quantity    int64         `bson:"quantity"`
	Price       float64       `bson:"price"`
	MinStock    int64         `bson:"min_stock"`
	Description string        `bson:"description,omitempty"`
	CreatedAt   *time.Time    `bson:"created_at,omitempty"`
	UpdatedAt   *time.Time    `bson:"updated_at,omitempty"`
}

func toDoc(it item.Item) itemDoc {
	return itemDoc{
		ID:          it.ID.ObjectID(),
		Name:        it.Name,
		ItemCode:    it.ItemCode,
		Category:    it.Category,
		Quantity:    it.Quantity,
		Price:       it.Price,
		MinStock:    it.MinStock,
		Description: it.Description,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func (d itemDoc) toItem() item.Item {
	return item.Item{
		ID:          oid.FromObjectID(d.ID),
		Name:        d.Name,
		ItemCode:    d.ItemCode,
		Category:    d.Category,
		Quantity:    d.Quantity,
		Price:       d.Price,
		MinStock:    d.MinStock,
		Description: d.Description,
		CreatedAt:   utcPtr(d.CreatedAt),
		UpdatedAt:   utcPtr(d.UpdatedAt),
	}
}

type ItemsRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewItemsRepo(db *mongo.Database) *ItemsRepo {
	return &ItemsRepo{
		coll: db.Collection(itemsCollection),
		// BSON dates carry millisecond precision
		now: utcNow,
	}
}

func (r *ItemsRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("items_created_at_desc"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("items_category"),
		},
	})

	return err
}

func (r *ItemsRepo) Create(ctx context.Context, it item.Item) (item.Item, error) {
	if it.ID.IsZero() {
		it.ID = oid.New()
	}

	now := r.now()
	it.CreatedAt = &now
	it.UpdatedAt = &now

	_, err := r.coll.InsertOne(ctx, toDoc(it))

	if err != nil {
		return item.Item{}, err
	}

	return it, nil
}

// listQuery builds the filter: the search term is matched literally, never as a pattern.
func listQuery(f item.ListFilter) bson.D {
	q := bson.D{}

	if f.Search != nil && *f.Search != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(*f.Search), Options: "i"}

		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "description", Value: re}},
			bson.D{{Key: "item_code", Value: re}},
		}})
	}

	if f.Category != nil {
		q = append(q, bson.E{Key: "category", Value: *f.Category})
	}

	return q
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *ItemsRepo) List(ctx context.Context, f item.ListFilter) ([]item.Item, int64, error) {
	q := listQuery(f)

	total, err := r.coll.CountDocuments(ctx, q)

	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(f.Offset))

	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	items, err := r.find(ctx, q, opts)

	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *ItemsRepo) GetByID(ctx context.Context, id oid.ID) (item.Item, error) {
	var d itemDoc

	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.ObjectID()}}).Decode(&d)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}

	return d.toItem(), nil
}

func setFields(p item.Patch, now time.Time) bson.D {
	set := bson.D{}

	if p.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *p.Name})
	}
	if p.ItemCode != nil {
		set = append(set, bson.E{Key: "item_code", Value: *p.ItemCode})
	}
	if p.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *p.Category})
	}
	if p.Quantity != nil {
		set = append(set, bson.E{Key: "quantity", Value: *p.Quantity})
	}
	if p.Price != nil {
		set = append(set, bson.E{Key: "price", Value: *p.Price})
	}
	if p.MinStock != nil {
		set = append(set, bson.E{Key: "min_stock", Value: *p.MinStock})
	}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *p.Description})
	}

	return append(set, bson.E{Key: "updated_at", Value: now})
}

// Update sets only the supplied fields and returns the stored document.
func (r *ItemsRepo) Update(ctx context.Context, id oid.ID, p item.Patch) (item.Item, error) {
	var d itemDoc

	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: id.ObjectID()}},
		bson.D{{Key: "$set", Value: setFields(p, r.now())}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}

	return d.toItem(), nil
}

func (r *ItemsRepo) Delete(ctx context.Context, id oid.ID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.ObjectID()}})

	if err != nil {
		return err
	}

	if res.DeletedCount == 0 {
		return item.ErrNotFound
	}

	return nil
}

func (r *ItemsRepo) ListLowStock(ctx context.Context, threshold int64) ([]item.Item, error) {
	return r.find(ctx,
		bson.D{{Key: "quantity", Value: bson.D{{Key: "$lte", Value: threshold}}}},
		options.Find().SetSort(newestFirst),
	)
}

// statsPipeline computes every figure in one round trip.
func statsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$facet", Value: bson.D{
			{Key: "totals", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "total_items", Value: bson.D{{Key: "$sum", Value: 1}}},
					{Key: "low_stock_items", Value: bson.D{{Key: "$sum", Value: bson.D{
						{Key: "$cond", Value: bson.A{
							bson.D{{Key: "$and", Value: bson.A{
								bson.D{{Key: "$isNumber", Value: "$quantity"}},
								bson.D{{Key: "$lte", Value: bson.A{"$quantity", item.LowStockThreshold}}},
							}}},
							1,
							0,
						}},
					}}}},
					{Key: "total_value", Value: bson.D{{Key: "$sum", Value: bson.D{
						{Key: "$multiply", Value: bson.A{"$quantity", "$price"}},
					}}}},
				}}},
			}},
			{Key: "categories", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$category"},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
			}},
		}}},
	}
}

type statsResult struct {
	Totals []struct {
		TotalItems    int64   `bson:"total_items"`
		LowStockItems int64   `bson:"low_stock_items"`
		TotalValue    float64 `bson:"total_value"`
	} `bson:"totals"`
	Categories []struct {
		Category *string `bson:"_id"`
		Count    int64   `bson:"count"`
	} `bson:"categories"`
}

// Stats returns the unrounded total value; rounding belongs to the stats service.
func (r *ItemsRepo) Stats(ctx context.Context) (item.Stats, error) {
	cursor, err := r.coll.Aggregate(ctx, statsPipeline())

	if err != nil {
		return item.Stats{}, err
	}

	var results []statsResult

	if err := cursor.All(ctx, &results); err != nil {
		return item.Stats{}, err
	}

	s := item.Stats{Categories: []item.CategoryCount{}}

	if len(results) == 0 {
		return s, nil
	}

	res := results[0]

	if len(res.Totals) > 0 {
		s.TotalItems = res.Totals[0].TotalItems
		s.LowStockItems = res.Totals[0].LowStockItems
		s.TotalValue = res.Totals[0].TotalValue
	}

	for _, c := range res.Categories {
		s.Categories = append(s.Categories, item.CategoryCount{Category: c.Category, Count: c.Count})
	}

	return s, nil
}

func (r *ItemsRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *ItemsRepo) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]item.Item, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)

	if err != nil {
		return nil, err
	}

	var docs []itemDoc

	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]item.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toItem())
	}

	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
