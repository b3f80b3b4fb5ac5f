package access_test

import (
	"errors"
	"testing"

	"cloud-storage/internal/access"
	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/fileInfo"
	"cloud-storage/internal/model/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner     = user.Principal{ID: 1}
	stranger  = user.Principal{ID: 2}
	staff     = user.Principal{ID: 3, IsStaff: true}
	superuser = user.Principal{ID: 4, IsSuperuser: true}
	ownedFile = &fileInfo.File{OwnerID: 1}
)

func TestScope_RegularUserAlwaysOwnFiles(t *testing.T) {
	p := access.New(access.Config{})
	for _, op := range []access.Operation{access.Read, access.Write} {
		scope := p.Scope(stranger, op)
		require.NotNil(t, scope, op.String())
		assert.Equal(t, stranger.ID, *scope)

		assert.False(t, p.Visible(stranger, op, ownedFile), op.String())
		assert.True(t, p.Visible(owner, op, ownedFile), op.String())
	}
}

func TestScope_PrivilegedSeeEveryOwner(t *testing.T) {
	p := access.New(access.Config{})

	for _, priv := range []user.Principal{staff, superuser} {
		for _, op := range []access.Operation{access.Read, access.Write} {
			assert.Nil(t, p.Scope(priv, op), op.String())
			assert.True(t, p.Visible(priv, op, ownedFile), op.String())
		}
	}
}

// With StaffOwnReads, staff reads are narrower than staff writes: plain
// list/retrieve returns only the staff member's own files while updates,
// deletes and short-link changes still reach every owner. Superusers are
// not narrowed.
func TestScope_StaffOwnReads(t *testing.T) {
	p := access.New(access.Config{StaffOwnReads: true})

	readScope := p.Scope(staff, access.Read)
	require.NotNil(t, readScope)
	assert.Equal(t, staff.ID, *readScope)
	assert.False(t, p.Visible(staff, access.Read, ownedFile))

	assert.Nil(t, p.Scope(staff, access.Write))
	assert.True(t, p.Visible(staff, access.Write, ownedFile))

	assert.Nil(t, p.Scope(superuser, access.Read))
	assert.True(t, p.Visible(superuser, access.Read, ownedFile))

	assert.False(t, p.Visible(stranger, access.Read, ownedFile))
	assert.False(t, p.Visible(stranger, access.Write, ownedFile))
}

func TestByOwner(t *testing.T) {
	p := access.New(access.Config{})

	_, err := p.ByOwner(stranger, 1)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	scope, err := p.ByOwner(staff, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), *scope)
}

func TestCanDownload(t *testing.T) {
	p := access.New(access.Config{})

	cases := []struct {
		name      string
		principal *user.Principal
		route     access.Route
		want      bool
	}{
		{"owner by id", &owner, access.ByID, true},
		{"stranger by id", &stranger, access.ByID, false},
		{"staff by id", &staff, access.ByID, true},
		{"superuser by id", &superuser, access.ByID, true},
		{"anonymous by id", nil, access.ByID, false},
		{"anonymous by short link", nil, access.ByShortLink, true},
		{"stranger by short link", &stranger, access.ByShortLink, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.CanDownload(tc.principal, tc.route, ownedFile))
		})
	}
}
