package kernel

// UserID identifies a user across the system.
type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

// Channel is the contact channel a user proves control of: an email
// address or a phone number.
type Channel string

func NewChannel(c string) Channel { return Channel(c) }
func (c Channel) String() string  { return string(c) }
func (c Channel) IsEmpty() bool   { return string(c) == "" }
