package model

import "time"

type Table struct {
	ID            string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	TableID       string    `json:"tableId" bson:"tableId" gorm:"uniqueIndex;not null"`
	Name          string    `json:"name" bson:"name"`
	TablePassword string    `json:"tablePassword" bson:"tablePassword" gorm:"not null"`
	Active        bool      `json:"active" bson:"active" gorm:"not null"`
	Occupied      bool      `json:"occupied" bson:"occupied" gorm:"not null"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DisplayName falls back to the table id when no name was given.
func (t *Table) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.TableID
}

// TableUpdate carries a partial update; nil fields are left untouched.
type TableUpdate struct {
	Name          *string `json:"name"`
	TablePassword *string `json:"tablePassword"`
	Active        *bool   `json:"active"`
	Occupied      *bool   `json:"occupied"`
}

func (u TableUpdate) Empty() bool {
	return u.Name == nil && u.TablePassword == nil && u.Active == nil && u.Occupied == nil
}

func (u TableUpdate) Apply(t *Table) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.TablePassword != nil {
		t.TablePassword = *u.TablePassword
	}
	if u.Active != nil {
		t.Active = *u.Active
	}
	if u.Occupied != nil {
		t.Occupied = *u.Occupied
	}
}
