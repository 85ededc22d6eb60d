package model

type ClinicInfo struct {
	Name    string `db:"name" json:"name" validate:"notblank"`
	Address string `db:"address" json:"address"`
	Phone   string `db:"phone" json:"phone"`
	Email   string `db:"email" json:"email" validate:"omitempty,email"`
}
