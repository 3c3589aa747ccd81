package model

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

// RequestedRole resolves the self-registration role; anything but doctor is a patient.
func (r *RegisterRequest) RequestedRole() Role {
	if Role(r.Role) == RoleDoctor {
		return RoleDoctor
	}
	return RolePatient
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *User
	Token string
}
