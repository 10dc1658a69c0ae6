package entities

type User struct {
	ID       uint64  `json:"id"`
	Fio      string  `json:"fio"`
	Email    *string `json:"email"`
	Position *string `json:"position"`
	StatusID *uint64 `json:"status_id"`
}
