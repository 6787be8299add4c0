package domain

// Identity is the caller identity handed in by the authentication
// collaborator. A staff session carries a Position; a customer session
// carries its CustomerID. Both zero means anonymous.
type Identity struct {
	StaffPosition Position
	CustomerID    int64
}

// IsStaff reports whether the caller may join the staff/admin broadcast
// group. Any active staff position qualifies, matching the staff/admin
// group gate on the notification channel.
func (id Identity) IsStaff() bool { return id.StaffPosition.Valid() }

func (id Identity) IsCustomer() bool { return id.CustomerID > 0 }
