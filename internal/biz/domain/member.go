package domain

// Member represents a group member (value object)
type Member struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
}

// DisplayName returns the name, or the contact ID when no name is known
func (m *Member) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ContactID
}
