package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pgnest/internal/domain/property"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.PropertyID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, property.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) ByOwner(ctx context.Context, owner property.OwnerID) ([]*property.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"owner_id": string(owner)}, opts)
}

// Search pushes the equality filters into the query and applies the remaining
// in-process checks (amenity subset, gender compatibility) on the decoded rows.
func (r *PropertyRepository) Search(ctx context.Context, params property.SearchParams) ([]*property.Property, error) {
	opts := params.Normalized()
	filter := bson.M{}
	if opts.OnlyActive {
		filter["active"] = true
	}
	if opts.City != "" {
		filter["address.city"] = bson.M{"$regex": "^" + opts.City + "$", "$options": "i"}
	}
	if opts.Sharing != "" {
		filter["sharing"] = string(opts.Sharing)
	}
	rent := bson.M{}
	if opts.MinRent > 0 {
		rent["$gte"] = opts.MinRent
	}
	if opts.MaxRent > 0 {
		rent["$lte"] = opts.MaxRent
	}
	if len(rent) > 0 {
		filter["monthly_rent"] = rent
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "monthly_rent", Value: 1}}).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))
	props, err := r.find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	matches := props[:0]
	for _, prop := range props {
		if opts.Matches(prop) {
			matches = append(matches, prop)
		}
	}
	return matches, nil
}

func (r *PropertyRepository) Save(ctx context.Context, prop *property.Property) error {
	doc := newPropertyDocument(prop)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *PropertyRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*property.Property, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	props := make([]*property.Property, 0)
	for cursor.Next(ctx) {
		var doc propertyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		props = append(props, doc.toAggregate())
	}
	return props, cursor.Err()
}

type propertyDocument struct {
	ID            string          `bson:"_id"`
	OwnerID       string          `bson:"owner_id"`
	OwnerName     string          `bson:"owner_name"`
	OwnerPhone    string          `bson:"owner_phone"`
	Title         string          `bson:"title"`
	Description   string          `bson:"description"`
	Address       addressDocument `bson:"address"`
	MonthlyRent   int64           `bson:"monthly_rent"`
	DepositMonths int             `bson:"deposit_months"`
	Sharing       string          `bson:"sharing"`
	Gender        string          `bson:"gender"`
	FoodIncluded  bool            `bson:"food_included"`
	Amenities     []string        `bson:"amenities"`
	HouseRules    []string        `bson:"house_rules"`
	AvailableBeds int             `bson:"available_beds"`
	ThumbnailURL  string          `bson:"thumbnail_url"`
	Rating        float64         `bson:"rating"`
	Active        bool            `bson:"active"`
	CreatedAt     int64           `bson:"created_at"`
	UpdatedAt     int64           `bson:"updated_at"`
}

type addressDocument struct {
	Line1    string `bson:"line1"`
	Locality string `bson:"locality"`
	City     string `bson:"city"`
	State    string `bson:"state"`
	Pincode  string `bson:"pincode"`
}

func newPropertyDocument(p *property.Property) propertyDocument {
	return propertyDocument{
		ID:            string(p.ID),
		OwnerID:       string(p.Owner),
		OwnerName:     p.OwnerName,
		OwnerPhone:    p.OwnerPhone,
		Title:         p.Title,
		Description:   p.Description,
		Address: addressDocument{
			Line1:    p.Address.Line1,
			Locality: p.Address.Locality,
			City:     p.Address.City,
			State:    p.Address.State,
			Pincode:  p.Address.Pincode,
		},
		MonthlyRent:   p.MonthlyRent,
		DepositMonths: p.DepositMonths,
		Sharing:       string(p.Sharing),
		Gender:        string(p.Gender),
		FoodIncluded:  p.FoodIncluded,
		Amenities:     p.Amenities,
		HouseRules:    p.HouseRules,
		AvailableBeds: p.AvailableBeds,
		ThumbnailURL:  p.ThumbnailURL,
		Rating:        p.Rating,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt.UnixMilli(),
		UpdatedAt:     p.UpdatedAt.UnixMilli(),
	}
}

func (d propertyDocument) toAggregate() *property.Property {
	return &property.Property{
		ID:         property.PropertyID(d.ID),
		Owner:      property.OwnerID(d.OwnerID),
		OwnerName:  d.OwnerName,
		OwnerPhone: d.OwnerPhone,
		Title:      d.Title,
		Description: d.Description,
		Address: property.Address{
			Line1:    d.Address.Line1,
			Locality: d.Address.Locality,
			City:     d.Address.City,
			State:    d.Address.State,
			Pincode:  d.Address.Pincode,
		},
		MonthlyRent:   d.MonthlyRent,
		DepositMonths: d.DepositMonths,
		Sharing:       property.SharingType(d.Sharing),
		Gender:        property.GenderPreference(d.Gender),
		FoodIncluded:  d.FoodIncluded,
		Amenities:     d.Amenities,
		HouseRules:    d.HouseRules,
		AvailableBeds: d.AvailableBeds,
		ThumbnailURL:  d.ThumbnailURL,
		Rating:        d.Rating,
		Active:        d.Active,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
	}
}
