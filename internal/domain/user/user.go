package user

type Role string

const (
	RoleCandidate Role = "candidate"
	RoleStaff     Role = "staff"
)
