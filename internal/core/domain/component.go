package domain

// swagger:model domain.Component
type Component struct {
	ID           int64        `json:"-"`
	Manufacturer string       `json:"manufacturer" validate:"required"`
	Description  string       `json:"description" validate:"required"`
	Condition    string       `json:"condition" validate:"required"`
	Carrier      *BikeSummary `json:"carrier"`
}

func (c *Component) CarriedBy(bikeID int64) bool {
	return c.Carrier != nil && c.Carrier.ID == bikeID
}

func (c *Component) Summary() ComponentSummary {
	return ComponentSummary{ID: c.ID, Description: c.Description}
}
