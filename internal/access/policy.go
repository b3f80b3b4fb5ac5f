// Package access decides which file records a principal may see, change or
// download. Everything here is pure: no I/O, no clock, no logging.
package access

import (
	"fmt"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/fileInfo"
	"cloud-storage/internal/model/user"
)

// Operation tags a request as reading or mutating records. Scoping can differ
// between the two for staff, see Config.StaffOwnReads.
type Operation int

const (
	Read Operation = iota
	Write
)

func (o Operation) String() string {
	switch o {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Route is the path a download arrived through.
type Route int

const (
	ByID Route = iota
	ByShortLink
)

type Config struct {
	// StaffOwnReads narrows plain list/retrieve for staff who are not
	// superusers to their own files. Writes and the by-owner listing still
	// reach every owner.
	StaffOwnReads bool `env:"ACCESS_STAFF_OWN_READS" env-default:"false"`
}

type Policy struct {
	staffOwnReads bool
}

func New(cfg Config) Policy {
	return Policy{staffOwnReads: cfg.StaffOwnReads}
}

// Scope returns the owner restriction for a query, nil meaning every owner.
//
// Staff and superusers are unrestricted. With StaffOwnReads set, staff reads
// fall back to their own files; superusers always see everything.
func (p Policy) Scope(principal user.Principal, op Operation) *uint32 {
	switch {
	case principal.IsSuperuser:
		return nil
	case principal.IsStaff && (op == Write || !p.staffOwnReads):
		return nil
	}
	return fileInfo.OwnedBy(principal.ID)
}

// Visible applies Scope to a single record.
func (p Policy) Visible(principal user.Principal, op Operation, f *fileInfo.File) bool {
	owner := p.Scope(principal, op)
	return owner == nil || *owner == f.OwnerID
}

// ByOwner scopes the staff-only listing of another owner's files. Callers
// outside staff get ErrForbidden: the endpoint itself, not a record, is denied.
func (p Policy) ByOwner(principal user.Principal, ownerID uint32) (*uint32, error) {
	if !principal.Privileged() {
		return nil, fmt.Errorf("list by owner: %w", apperr.ErrForbidden)
	}
	return fileInfo.OwnedBy(ownerID), nil
}

// CanDownload reports whether bytes of f may be served. principal is nil for
// anonymous callers. Holding the short link is itself the credential, so that
// route ignores principal and ownership entirely.
func (p Policy) CanDownload(principal *user.Principal, route Route, f *fileInfo.File) bool {
	if route == ByShortLink {
		return true
	}
	if principal == nil {
		return false
	}
	switch {
	case principal.IsSuperuser:
		return true
	case principal.IsStaff:
		return true
	default:
		return principal.ID == f.OwnerID
	}
}
