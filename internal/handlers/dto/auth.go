package dto

type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type UpdateUsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

type UserResponse struct {
	ID           uint64 `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	SchoolDomain string `json:"school_domain"`
	Coins        int    `json:"coins"`
}
