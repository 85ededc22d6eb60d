package model

import "github.com/google/uuid"

type Medicine struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Price int64     `db:"price" json:"price"`
	Stock int       `db:"stock" json:"stock"`
}

// StockShortage describes one medicine the pharmacy cannot fill.
type StockShortage struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Requested    int       `json:"requested"`
	Available    int       `json:"available"`
}
