package domain

// swagger:model domain.User
type User struct {
	ID       int64           `json:"-"`
	Nickname string          `json:"nickname"`
	Email    string          `json:"email"`
	Verified bool            `json:"verified"`
	RenterID string          `json:"renter_id"`
	Rental   []RentalSummary `json:"rental"`
}

func (u *User) RentalIndex(bikeID int64) int {
	for i, r := range u.Rental {
		if r.ID == bikeID {
			return i
		}
	}
	return -1
}

func (u *User) RemoveRental(bikeID int64) bool {
	i := u.RentalIndex(bikeID)
	if i < 0 {
		return false
	}
	u.Rental = append(u.Rental[:i], u.Rental[i+1:]...)
	return true
}

func (u *User) Normalize() {
	if u.Rental == nil {
		u.Rental = []RentalSummary{}
	}
}

// Claims is the verified token payload. Only Subject is guaranteed.
type Claims struct {
	Subject       string                 `json:"sub"`
	Nickname      string                 `json:"nickname,omitempty"`
	Email         string                 `json:"email,omitempty"`
	EmailVerified bool                   `json:"email_verified,omitempty"`
	Raw           map[string]interface{} `json:"-"`
}
