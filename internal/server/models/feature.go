package models

// Feature is a named capability that can be granted to individual users.
// Route holds the route pattern the capability gates.
type Feature struct {
	ID          string
	Name        string
	Description string
	Route       string
	Active      bool
}

// UserFeature records that a user currently holds a feature. GrantedBy is the
// id of the actor that made the grant, kept for auditing.
type UserFeature struct {
	ID        string
	UserID    string
	FeatureID string
	GrantedBy string
	Active    bool
}
