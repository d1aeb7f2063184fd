package entity

type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

type User struct {
	Base
	Username     string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role         Role   `gorm:"size:20;not null;default:regular" json:"role"`
}

func (*User) TableName() string { return "users" }

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
