package access

import "github.com/google/uuid"

// Role identifies the kind of actor requesting access to clinical records.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleStaff   Role = "staff"
	RolePatient Role = "patient"
)

// Capabilities granted per role. Confidential records are a capability check,
// not a hierarchy: a role either holds viewConfidential or it does not.
var roleCaps = map[Role]struct {
	viewClinical     bool
	viewConfidential bool
}{
	RoleAdmin:  {viewClinical: true, viewConfidential: true},
	RoleDoctor: {viewClinical: true, viewConfidential: false},
	RoleNurse:  {viewClinical: true, viewConfidential: false},
	RoleStaff:  {viewClinical: false, viewConfidential: false},
}

// CanView reports whether an actor may read a clinical record. Non-confidential
// records are visible to every clinical role; confidential records are visible
// only to admins and to the record's author.
func CanView(actor Role, actorID, ownerID uuid.UUID, confidential bool) bool {
	if actorID != uuid.Nil && actorID == ownerID {
		return true
	}
	caps, ok := roleCaps[actor]
	if !ok {
		return false
	}
	if confidential {
		return caps.viewConfidential
	}
	return caps.viewClinical
}
