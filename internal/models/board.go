package models

import "time"

// Board groups tasks shared between its members.
type Board struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BoardMember links a user to a board they have joined.
type BoardMember struct {
	ID       int64     `db:"id" json:"id"`
	BoardID  int64     `db:"board_id" json:"board_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	Nickname string    `db:"nickname" json:"nickname"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// BoardFilter captures paging for board listings.
type BoardFilter struct {
	Page     int
	PageSize int
}

// CreateBoardRequest is the payload for creating a board.
type CreateBoardRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

// UpdateBoardRequest renames a board.
type UpdateBoardRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}
