package property

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired    = errors.New("property: id is required")
	ErrOwnerRequired = errors.New("property: owner id is required")
	ErrTitleRequired = errors.New("property: title is required")
	ErrCityRequired  = errors.New("property: city is required")
	ErrRentInvalid   = errors.New("property: monthly rent must be positive")
	ErrNotFound      = errors.New("property: not found")
)

type PropertyID string
type OwnerID string

// SharingType describes how many tenants share a room.
type SharingType string

const (
	SharingSingle SharingType = "single"
	SharingDouble SharingType = "double"
	SharingTriple SharingType = "triple"
	SharingDorm   SharingType = "dorm"
)

// GenderPreference restricts who a PG admits.
type GenderPreference string

const (
	GenderAny    GenderPreference = "any"
	GenderMale   GenderPreference = "male"
	GenderFemale GenderPreference = "female"
)

type Address struct {
	Line1    string
	Locality string
	City     string
	State    string
	Pincode  string
}

// Property is a single PG accommodation listing.
type Property struct {
	ID               PropertyID
	Owner            OwnerID
	OwnerName        string
	OwnerPhone       string
	Title            string
	Description      string
	Address          Address
	MonthlyRent      int64
	DepositMonths    int
	Sharing          SharingType
	Gender           GenderPreference
	FoodIncluded     bool
	Amenities        []string
	HouseRules       []string
	AvailableBeds    int
	ThumbnailURL     string
	Rating           float64
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CreateParams struct {
	ID            PropertyID
	Owner         OwnerID
	OwnerName     string
	OwnerPhone    string
	Title         string
	Description   string
	Address       Address
	MonthlyRent   int64
	DepositMonths int
	Sharing       SharingType
	Gender        GenderPreference
	FoodIncluded  bool
	Amenities     []string
	HouseRules    []string
	AvailableBeds int
	ThumbnailURL  string
	Rating        float64
	Now           time.Time
}

func New(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.Address.City) == "" {
		return nil, ErrCityRequired
	}
	if params.MonthlyRent <= 0 {
		return nil, ErrRentInvalid
	}
	sharing := params.Sharing
	if sharing == "" {
		sharing = SharingDouble
	}
	gender := params.Gender
	if gender == "" {
		gender = GenderAny
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Property{
		ID:            params.ID,
		Owner:         params.Owner,
		OwnerName:     strings.TrimSpace(params.OwnerName),
		OwnerPhone:    strings.TrimSpace(params.OwnerPhone),
		Title:         strings.TrimSpace(params.Title),
		Description:   params.Description,
		Address:       params.Address,
		MonthlyRent:   params.MonthlyRent,
		DepositMonths: params.DepositMonths,
		Sharing:       sharing,
		Gender:        gender,
		FoodIncluded:  params.FoodIncluded,
		Amenities:     append([]string(nil), params.Amenities...),
		HouseRules:    append([]string(nil), params.HouseRules...),
		AvailableBeds: params.AvailableBeds,
		ThumbnailURL:  params.ThumbnailURL,
		Rating:        params.Rating,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Repository is the persistence port for properties.
type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	ByOwner(ctx context.Context, owner OwnerID) ([]*Property, error)
	Search(ctx context.Context, params SearchParams) ([]*Property, error)
	Save(ctx context.Context, property *Property) error
}
