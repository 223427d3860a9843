package domain

// User mirrors the relief backend's user record. Email is the unique key.
// The is_admin flag is informational only: authorization always re-verifies
// admin status against the backend (see session.Manager).
type User struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	IsAdmin  bool   `json:"is_admin"`
}

// Role returns the user's parsed role.
func (u *User) Role() Role {
	if u == nil {
		return RoleUnknown
	}
	return ParseRole(u.UserType)
}

// HelpRequest is keyed by victim_id + timestamp on the backend.
type HelpRequest struct {
	VictimID          string  `json:"victim_id"`
	RequestType       string  `json:"request_type"`
	Description       string  `json:"description"`
	Urgency           string  `json:"urgency"`
	Location          string  `json:"location"`
	Status            string  `json:"status"`
	Timestamp         string  `json:"timestamp"`
	Latitude          string  `json:"latitude"`
	Longitude         string  `json:"longitude"`
	VerificationNote  *string `json:"verification_note,omitempty"`
	VerifiedBy        *string `json:"verified_by,omitempty"`
	OrganizationID    *string `json:"organization_id,omitempty"`
	AssignedVolunteer *string `json:"assigned_volunteer,omitempty"`
}

type VolunteerLocation struct {
	Email       string `json:"email"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Address     string `json:"address"`
	LastUpdated string `json:"last_updated"`
}

type SupplyItem struct {
	Name     string `json:"name"`
	Quantity uint32 `json:"quantity"`
	Unit     string `json:"unit"`
}

type SupplyBundle struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Items       []SupplyItem `json:"items"`
	Status      string       `json:"status"`
	AssignedTo  *string      `json:"assigned_to,omitempty"`
	CreatedAt   string       `json:"created_at"`
}

type DistributionDetail struct {
	Amount  float64 `json:"amount"`
	Purpose string  `json:"purpose"`
	Date    string  `json:"date"`
}

type Donation struct {
	ID                  string               `json:"id"`
	Amount              float64              `json:"amount"`
	DonorName           string               `json:"donor_name"`
	DonorEmail          string               `json:"donor_email"`
	Date                string               `json:"date"`
	DistributionDetails []DistributionDetail `json:"distribution_details"`
}

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}
