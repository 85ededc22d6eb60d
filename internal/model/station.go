package model

import "github.com/google/uuid"

type Station string

const (
	StationReception Station = "reception"
	StationDoctor    Station = "doctor"
	StationPharmacy  Station = "pharmacy"
	StationCashier   Station = "cashier"
)

// StationRoles lists who may work each station. Admins pass every check.
var StationRoles = map[Station][]Role{
	StationReception: {RoleCashier},
	StationDoctor:    {RoleDoctor},
	StationPharmacy:  {RolePharmacist},
	StationCashier:   {RoleCashier},
}

// Actor is the authenticated user behind a request.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// CanWork reports whether the actor may operate station.
func (a Actor) CanWork(station Station) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, r := range StationRoles[station] {
		if a.Role == r {
			return true
		}
	}
	return false
}

// AdvancingStation names the station that moves a visit out of status.
// Payment is settled by billing and done is final.
func (s VisitStatus) AdvancingStation() (Station, bool) {
	switch s {
	case VisitStatusWaiting, VisitStatusSkipped, VisitStatusExamining:
		return StationDoctor, true
	case VisitStatusPharmacy:
		return StationPharmacy, true
	}
	return "", false
}
