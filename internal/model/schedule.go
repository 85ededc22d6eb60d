package model

import "github.com/google/uuid"

type ScheduleStatus string

const (
	ScheduleStatusPractice ScheduleStatus = "Praktek"
	ScheduleStatusOff      ScheduleStatus = "Libur"
	ScheduleStatusLeave    ScheduleStatus = "Cuti"
)

type DoctorSchedule struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	DoctorID  uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Name      string         `db:"name" json:"name"`
	Specialty string         `db:"specialty" json:"specialty"`
	Day       string         `db:"day" json:"day"`
	Time      string         `db:"time_range" json:"time"`
	Status    ScheduleStatus `db:"status" json:"status"`
	Quota     int            `db:"quota" json:"quota"`
	Filled    int            `db:"filled" json:"filled"`
}

type TodaySchedule struct {
	Day       string            `json:"day"`
	Schedules []*DoctorSchedule `json:"schedules"`
	OnDuty    int               `json:"on_duty"`
}
