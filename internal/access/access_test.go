package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanView(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	tests := []struct {
		name         string
		role         Role
		actorID      uuid.UUID
		confidential bool
		want         bool
	}{
		{name: "doctor sees plain record", role: RoleDoctor, actorID: other, confidential: false, want: true},
		{name: "nurse sees plain record", role: RoleNurse, actorID: other, confidential: false, want: true},
		{name: "staff blocked from clinical records", role: RoleStaff, actorID: other, confidential: false, want: false},
		{name: "doctor blocked from others' confidential", role: RoleDoctor, actorID: other, confidential: true, want: false},
		{name: "author sees own confidential", role: RoleDoctor, actorID: owner, confidential: true, want: true},
		{name: "admin sees confidential", role: RoleAdmin, actorID: other, confidential: true, want: true},
		{name: "patient role has no clinical capability", role: RolePatient, actorID: other, confidential: false, want: false},
		{name: "unknown role denied", role: Role("intruder"), actorID: other, confidential: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.role, tt.actorID, owner, tt.confidential))
		})
	}
}
