package property

import "testing"

func validParams() CreateParams {
	return CreateParams{
		ID:          "prop-1",
		Owner:       "owner-1",
		Title:       "Green Nest PG",
		Address:     Address{Line1: "12 MG Road", Locality: "Indiranagar", City: "Bengaluru"},
		MonthlyRent: 9500,
	}
}

func TestNewDefaults(t *testing.T) {
	prop, err := New(validParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if prop.Sharing != SharingDouble {
		t.Fatalf("default sharing = %s", prop.Sharing)
	}
	if prop.Gender != GenderAny {
		t.Fatalf("default gender = %s", prop.Gender)
	}
	if !prop.Active {
		t.Fatal("new property should be active")
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{"missing id", func(p *CreateParams) { p.ID = "" }, ErrIDRequired},
		{"missing owner", func(p *CreateParams) { p.Owner = " " }, ErrOwnerRequired},
		{"missing title", func(p *CreateParams) { p.Title = "" }, ErrTitleRequired},
		{"missing city", func(p *CreateParams) { p.Address.City = "" }, ErrCityRequired},
		{"zero rent", func(p *CreateParams) { p.MonthlyRent = 0 }, ErrRentInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			if _, err := New(params); err != tc.want {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSearchMatches(t *testing.T) {
	prop, err := New(CreateParams{
		ID:           "prop-2",
		Owner:        "owner-1",
		Title:        "Lakeview PG for Women",
		Address:      Address{Line1: "4 Lake Rd", Locality: "HSR Layout", City: "Bengaluru"},
		MonthlyRent:  12000,
		Sharing:      SharingSingle,
		Gender:       GenderFemale,
		FoodIncluded: true,
		Amenities:    []string{"WiFi", "Laundry", "AC"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	food := true
	cases := []struct {
		name   string
		params SearchParams
		want   bool
	}{
		{"empty filter", SearchParams{}, true},
		{"city match case-insensitive", SearchParams{City: "bengaluru"}, true},
		{"city mismatch", SearchParams{City: "Pune"}, false},
		{"rent ceiling", SearchParams{MaxRent: 10000}, false},
		{"rent floor", SearchParams{MinRent: 10000}, true},
		{"sharing", SearchParams{Sharing: SharingDouble}, false},
		{"gender match", SearchParams{Gender: GenderFemale}, true},
		{"gender mismatch", SearchParams{Gender: GenderMale}, false},
		{"food", SearchParams{FoodIncluded: &food}, true},
		{"amenity subset", SearchParams{Amenities: []string{"wifi", "ac"}}, true},
		{"amenity missing", SearchParams{Amenities: []string{"parking"}}, false},
		{"locality substring", SearchParams{Locality: "hsr"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.params.Normalized().Matches(prop); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizedBoundsPaging(t *testing.T) {
	params := SearchParams{Limit: -5, Offset: -1}.Normalized()
	if params.Limit != defaultSearchLimit {
		t.Fatalf("limit = %d", params.Limit)
	}
	if params.Offset != 0 {
		t.Fatalf("offset = %d", params.Offset)
	}
}
