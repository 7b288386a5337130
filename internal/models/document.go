package models

// Document is the single persisted JSON blob holding all application state.
type Document struct {
	Users   []UserAccount `json:"users"`
	Classes []ClassRecord `json:"classes"`
	Notices []Notice      `json:"notices"`
}

// Clone returns a deep copy so callers cannot mutate the cached document.
func (d Document) Clone() Document {
	out := Document{
		Users:   make([]UserAccount, len(d.Users)),
		Classes: make([]ClassRecord, len(d.Classes)),
		Notices: make([]Notice, len(d.Notices)),
	}
	copy(out.Users, d.Users)
	copy(out.Classes, d.Classes)
	copy(out.Notices, d.Notices)
	return out
}

// UserIndexByEmail returns the index of the account with the email, or -1.
func (d Document) UserIndexByEmail(email string) int {
	for i, u := range d.Users {
		if u.Email == email {
			return i
		}
	}
	return -1
}

// UserIndexByID returns the index of the account with the id, or -1.
func (d Document) UserIndexByID(id string) int {
	for i, u := range d.Users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
