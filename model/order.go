package model

import "time"

type OrderItem struct {
	MenuItemID     string  `json:"menuItemId" bson:"menuItemId"`
	Name           string  `json:"name" bson:"name"`
	Price          float64 `json:"price" bson:"price"`
	Quantity       int     `json:"quantity" bson:"quantity"`
	Customizations string  `json:"customizations" bson:"customizations"`
}

type Order struct {
	ID          string      `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	TableID     string      `json:"tableId" bson:"tableId" gorm:"index;not null"`
	Items       []OrderItem `json:"items" bson:"items" gorm:"type:jsonb;serializer:json"`
	Status      OrderStatus `json:"status" bson:"status" gorm:"type:varchar(16);index;not null"`
	Total       float64     `json:"total" bson:"total" gorm:"not null"`
	Notes       string      `json:"notes" bson:"notes"`
	PreparingAt *time.Time  `json:"preparingAt,omitempty" bson:"preparingAt,omitempty"`
	ReadyAt     *time.Time  `json:"readyAt,omitempty" bson:"readyAt,omitempty"`
	ServedAt    *time.Time  `json:"servedAt,omitempty" bson:"servedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt" gorm:"index"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// ApplyStatus overwrites the status and stamps the matching timestamp.
func (o *Order) ApplyStatus(s OrderStatus, at time.Time) {
	o.Status = s
	o.UpdatedAt = at
	s.Stamp(o, at)
}

type Feedback struct {
	ID            string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	OrderID       string    `json:"orderId" bson:"orderId" gorm:"index;not null"`
	TableID       string    `json:"tableId" bson:"tableId" gorm:"index;not null"`
	FoodRating    int       `json:"foodRating" bson:"foodRating" gorm:"not null"`
	ServiceRating int       `json:"serviceRating" bson:"serviceRating" gorm:"not null"`
	Suggestions   string    `json:"suggestions" bson:"suggestions"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt" gorm:"index"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}

// WaiterCall is a table's request for staff attention.
type WaiterCall struct {
	ID             string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	TableID        string     `json:"tableId" bson:"tableId" gorm:"index;not null"`
	Note           string     `json:"note" bson:"note"`
	Acknowledged   bool       `json:"acknowledged" bson:"acknowledged" gorm:"index;not null"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt" gorm:"index"`
}
