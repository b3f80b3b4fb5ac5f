package fileInfo

import (
	"time"

	"github.com/google/uuid"
)

// File is the metadata record of one stored blob.
type File struct {
	ID               uuid.UUID  `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	OwnerID          uint32     `json:"owner" gorm:"column:owner_id;index;not null"`
	OriginalName     string     `json:"original_name" gorm:"column:original_name;not null"`
	StoredPath       string     `json:"file" gorm:"column:stored_path;not null"`
	Size             int64      `json:"size" gorm:"column:size;not null"`
	UploadDate       time.Time  `json:"upload_date" gorm:"column:upload_date;not null"`
	LastUpdateDate   time.Time  `json:"last_update_date" gorm:"column:last_update_date;not null"`
	LastDownloadDate *time.Time `json:"last_download_date" gorm:"column:last_download_date"`
	Comment          string     `json:"comment" gorm:"column:comment;not null;default:''"`
	ShortLink        *string    `json:"short_link" gorm:"column:short_link;uniqueIndex"`
}

func (File) TableName() string { return "files" }

// Content describes a blob that has already been written to the blob store.
type Content struct {
	OriginalName string
	StoredPath   string
	Size         int64
}

// Changes is applied to a record in a single row update. Nil fields are left
// untouched; UpdatedAt is always written.
type Changes struct {
	Comment   *string
	Content   *Content
	UpdatedAt time.Time
}

// Filter narrows a listing. A nil OwnerID lists every owner.
type Filter struct {
	OwnerID *uint32
	Limit   int
	Offset  int
}

func OwnedBy(ownerID uint32) *uint32 {
	return &ownerID
}
