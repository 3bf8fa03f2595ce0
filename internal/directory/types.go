package directory

// GroupRef is the fully-qualified remote identity of a group. Groups and
// users are uniquely named per owner namespace; there is no server-side
// surrogate key exposed to clients.
type GroupRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Group is the wire payload for group create/update calls and the record
// shape returned by the group listing.
type Group struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"group_type"`
	Owner       string `json:"owner"`
	Enabled     bool   `json:"enabled"`
	// Parent is resolved by the directory by name within the same owner
	// namespace. For a root group it is the owner namespace itself.
	Parent string `json:"parent"`
}

// User is the wire payload for user create/update calls and the record shape
// returned by the user listing.
type User struct {
	Name         string     `json:"name"`
	DisplayName  string     `json:"display_name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Language     string     `json:"language,omitempty"`
	Company      string     `json:"company,omitempty"`
	Owner        string     `json:"owner"`
	PasswordHash string     `json:"password_hash,omitempty"`
	Groups       []GroupRef `json:"groups"`
}
