package dto

type SettleRequest struct {
	Coins int `json:"coins" binding:"required,gt=0"`
}

type SettleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Coins   int    `json:"coins"`
}
