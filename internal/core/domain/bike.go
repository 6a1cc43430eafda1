package domain

// swagger:model domain.Bike
type Bike struct {
	ID           int64              `json:"-"`
	Manufacturer string             `json:"manufacturer" validate:"required"`
	Type         string             `json:"type" validate:"required"`
	ModelYear    int                `json:"model_year" validate:"required"`
	BikeSize     string             `json:"bike_size" validate:"required"`
	Specs        []ComponentSummary `json:"specs"`
	Rentee       *int64             `json:"rentee"`
}

// ComponentSummary is the entry a bike keeps for every installed component.
type ComponentSummary struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// BikeSummary is the reference a component keeps to its carrier.
type BikeSummary struct {
	ID           int64  `json:"id"`
	Manufacturer string `json:"manufacturer"`
}

// RentalSummary is the entry a user keeps for every rented bike.
type RentalSummary struct {
	ID int64 `json:"id"`
}

func (b *Bike) SpecIndex(componentID int64) int {
	for i, s := range b.Specs {
		if s.ID == componentID {
			return i
		}
	}
	return -1
}

func (b *Bike) RemoveSpec(componentID int64) bool {
	i := b.SpecIndex(componentID)
	if i < 0 {
		return false
	}
	b.Specs = append(b.Specs[:i], b.Specs[i+1:]...)
	return true
}

func (b *Bike) IsRented() bool {
	return b.Rentee != nil
}

func (b *Bike) RentedBy(userID int64) bool {
	return b.Rentee != nil && *b.Rentee == userID
}

// Normalize makes sure the collections are never null.
func (b *Bike) Normalize() {
	if b.Specs == nil {
		b.Specs = []ComponentSummary{}
	}
}

func (b *Bike) Summary() *BikeSummary {
	return &BikeSummary{ID: b.ID, Manufacturer: b.Manufacturer}
}
