package model

import "time"

// Society is the tenant boundary.  No pass, entry or lookup may cross
// societies.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name.
//  Address   – postal address.
//  CreatedAt – creation timestamp.
type Society struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Flat is a unit inside a society.  Passes and rules are owned by a
// flat; the flat's society transitively scopes them.
//
// Fields:
//  ID        – primary key identifier.
//  SocietyID – society the flat belongs to.
//  Number    – human-readable flat number (e.g. "B-304").
//  CreatedAt – creation timestamp.
type Flat struct {
	ID        uint64    `json:"id"`
	SocietyID uint64    `json:"society_id"`
	Number    string    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}
