package dto

import (
	"time"

	"pgnest/internal/domain/property"
)

// Property is the wire shape of a PG listing.
type Property struct {
	ID            string   `json:"id"`
	OwnerID       string   `json:"ownerId"`
	OwnerName     string   `json:"ownerName"`
	OwnerPhone    string   `json:"ownerPhone,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Address       Address  `json:"address"`
	MonthlyRent   int64    `json:"monthlyRent"`
	DepositMonths int      `json:"depositMonths,omitempty"`
	Sharing       string   `json:"sharing"`
	Gender        string   `json:"gender"`
	FoodIncluded  bool     `json:"foodIncluded"`
	Amenities     []string `json:"amenities,omitempty"`
	HouseRules    []string `json:"houseRules,omitempty"`
	AvailableBeds int      `json:"availableBeds"`
	ThumbnailURL  string   `json:"thumbnailUrl,omitempty"`
	Rating        float64  `json:"rating,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

type Address struct {
	Line1    string `json:"line1"`
	Locality string `json:"locality,omitempty"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	Pincode  string `json:"pincode,omitempty"`
}

// CreatePropertyRequest is the owner-dashboard create payload.
type CreatePropertyRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Address       Address  `json:"address"`
	MonthlyRent   int64    `json:"monthlyRent"`
	DepositMonths int      `json:"depositMonths"`
	Sharing       string   `json:"sharing"`
	Gender        string   `json:"gender"`
	FoodIncluded  bool     `json:"foodIncluded"`
	Amenities     []string `json:"amenities"`
	HouseRules    []string `json:"houseRules"`
	AvailableBeds int      `json:"availableBeds"`
	ThumbnailURL  string   `json:"thumbnailUrl"`
}

func FromProperty(p *property.Property) Property {
	return Property{
		ID:          string(p.ID),
		OwnerID:     string(p.Owner),
		OwnerName:   p.OwnerName,
		OwnerPhone:  p.OwnerPhone,
		Title:       p.Title,
		Description: p.Description,
		Address: Address{
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
		CreatedAt:     p.CreatedAt,
	}
}
