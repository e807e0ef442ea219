package solaris

import (
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
)

// Account attributes
const (
	AttrDir            = "dir"
	AttrShell          = "shell"
	AttrGroup          = "group"
	AttrSecondaryGroup = "secondary_group"
	AttrUidNumber      = "uid"
	AttrExpire         = "expire"
	AttrInactive       = "inactive"
	AttrComment        = "comment"
	AttrAuthorization  = "authorization"
	AttrProfile        = "profile"
	AttrRole           = "role"
	AttrMin            = "min"
	AttrMax            = "max"
	AttrWarn           = "warn"
)

// Group attributes
const (
	AttrGid   = "gid"
	AttrUsers = "users"
)

func buildSchema() *core.Schema {
	return &core.Schema{ObjectClasses: []core.ObjectClassInfo{
		{
			Type: core.ObjectClassAccount,
			Attributes: []core.AttributeInfo{
				{Name: core.AttrName, Type: core.TypeString, Required: true},
				{Name: core.AttrPassword, Type: core.TypeGuarded, NotReadable: true, NotReturnedByDefault: true},
				{Name: core.AttrLockOut, Type: core.TypeBool},
				{Name: core.AttrPasswordExpired, Type: core.TypeBool, NotReadable: true, NotReturnedByDefault: true},
				{Name: AttrUidNumber, Type: core.TypeInt},
				{Name: AttrGroup, Type: core.TypeString},
				{Name: AttrSecondaryGroup, Type: core.TypeString, MultiValued: true},
				{Name: AttrDir, Type: core.TypeString},
				{Name: AttrShell, Type: core.TypeString},
				{Name: AttrComment, Type: core.TypeString},
				{Name: AttrExpire, Type: core.TypeString},
				{Name: AttrInactive, Type: core.TypeInt},
				{Name: AttrMin, Type: core.TypeInt},
				{Name: AttrMax, Type: core.TypeInt},
				{Name: AttrWarn, Type: core.TypeInt},
				// RBAC attributes live in user_attr, which searches do not read
				{Name: AttrAuthorization, Type: core.TypeString, NotReadable: true, NotReturnedByDefault: true},
				{Name: AttrProfile, Type: core.TypeString, NotReadable: true, NotReturnedByDefault: true},
				{Name: AttrRole, Type: core.TypeString, NotReadable: true, NotReturnedByDefault: true},
			},
		},
		{
			Type: core.ObjectClassGroup,
			Attributes: []core.AttributeInfo{
				{Name: core.AttrName, Type: core.TypeString, Required: true},
				{Name: AttrGid, Type: core.TypeInt},
				{Name: AttrUsers, Type: core.TypeString, MultiValued: true},
			},
		},
	}}
}
