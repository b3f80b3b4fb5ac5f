package user

import "time"

type User struct {
	ID          uint32    `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Username    string    `json:"username" gorm:"column:username;uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"column:password_hash;not null"`
	IsStaff     bool      `json:"is_staff" gorm:"column:is_staff;not null;default:false"`
	IsSuperuser bool      `json:"is_superuser" gorm:"column:is_superuser;not null;default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (User) TableName() string { return "users" }

func (u *User) Principal() Principal {
	return Principal{ID: u.ID, IsStaff: u.IsStaff, IsSuperuser: u.IsSuperuser}
}

// Principal is the authenticated actor of a single request. It is built once
// per request from the stored user and never mutated afterwards.
type Principal struct {
	ID          uint32
	IsStaff     bool
	IsSuperuser bool
}

// Privileged reports whether the principal is staff or superuser.
func (p Principal) Privileged() bool {
	return p.IsStaff || p.IsSuperuser
}
