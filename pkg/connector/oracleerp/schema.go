package oracleerp

import (
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
)

// Object classes besides accounts
const (
	ObjectClassResponsibilityNames core.ObjectClass = "responsibilityNames"
	ObjectClassApplications        core.ObjectClass = "applications"
)

// Account attribute names
const (
	AttrOwner                    = "owner"
	AttrStartDate                = "start_date"
	AttrEndDate                  = "end_date"
	AttrLastLogonDate            = "last_logon_date"
	AttrDescription              = "description"
	AttrPasswordDate             = "password_date"
	AttrPasswordAccessesLeft     = "password_accesses_left"
	AttrPasswordLifespanAccesses = "password_lifespan_accesses"
	AttrPasswordLifespanDays     = "password_lifespan_days"
	AttrEmployeeID               = "employee_id"
	AttrEmailAddress             = "email_address"
	AttrFax                      = "fax"
	AttrCustomerID               = "customer_id"
	AttrSupplierID               = "supplier_id"
	AttrPersonPartyID            = "person_party_id"
	AttrUserID                   = "user_id"
	AttrResponsibilities         = "responsibilities"
	AttrResponsibilityKeys       = "responsibility_keys"

	AttrApplication          = "application"
	AttrApplicationShortName = "application_short_name"
)

// accountColumn maps an account attribute to its FND_USER column and its
// fnd_user_pkg parameter
type accountColumn struct {
	attr   string
	column string // empty when not stored in FND_USER
	param  string // empty when read-only
	typ    core.AttributeType
}

// accountColumns is in fnd_user_pkg parameter order
var accountColumns = []accountColumn{
	{core.AttrName, "user_name", "x_user_name", core.TypeString},
	{AttrOwner, "", "x_owner", core.TypeString},
	{core.AttrPassword, "", "x_unencrypted_password", core.TypeGuarded},
	{AttrStartDate, "start_date", "x_start_date", core.TypeTime},
	{AttrEndDate, "end_date", "x_end_date", core.TypeTime},
	{AttrLastLogonDate, "last_logon_date", "", core.TypeTime},
	{AttrDescription, "description", "x_description", core.TypeString},
	{AttrPasswordDate, "password_date", "x_password_date", core.TypeTime},
	{AttrPasswordAccessesLeft, "password_accesses_left", "x_password_accesses_left", core.TypeInt},
	{AttrPasswordLifespanAccesses, "password_lifespan_accesses", "x_password_lifespan_accesses", core.TypeInt},
	{AttrPasswordLifespanDays, "password_lifespan_days", "x_password_lifespan_days", core.TypeInt},
	{AttrEmployeeID, "employee_id", "x_employee_id", core.TypeInt},
	{AttrEmailAddress, "email_address", "x_email_address", core.TypeString},
	{AttrFax, "fax", "x_fax", core.TypeString},
	{AttrCustomerID, "customer_id", "x_customer_id", core.TypeInt},
	{AttrSupplierID, "supplier_id", "x_supplier_id", core.TypeInt},
	{AttrPersonPartyID, "person_party_id", "x_person_party_id", core.TypeInt},
	{AttrUserID, "user_id", "", core.TypeInt},
}

func buildSchema(returnResponsibilities bool) *core.Schema {
	account := core.ObjectClassInfo{Type: core.ObjectClassAccount}
	for _, col := range accountColumns {
		info := core.AttributeInfo{
			Name:          col.attr,
			Type:          col.typ,
			NotCreatable:  col.param == "",
			NotUpdateable: col.param == "",
			NotReadable:   col.column == "",
		}
		info.NotReturnedByDefault = info.NotReadable
		switch col.attr {
		case core.AttrName:
			info.Required = true
			info.NotUpdateable = true
		case core.AttrPassword:
			info.Required = true
		}
		account.Attributes = append(account.Attributes, info)
	}
	account.Attributes = append(account.Attributes,
		core.AttributeInfo{Name: core.AttrEnable, Type: core.TypeBool},
		core.AttributeInfo{Name: core.AttrPasswordExpired, Type: core.TypeBool, NotReadable: true, NotReturnedByDefault: true},
		core.AttributeInfo{Name: AttrResponsibilities, Type: core.TypeString, MultiValued: true, NotReturnedByDefault: !returnResponsibilities},
		core.AttributeInfo{Name: AttrResponsibilityKeys, Type: core.TypeString, MultiValued: true,
			NotCreatable: true, NotUpdateable: true, NotReturnedByDefault: !returnResponsibilities},
	)

	readOnly := func(name string, typ core.AttributeType) core.AttributeInfo {
		return core.AttributeInfo{Name: name, Type: typ, NotCreatable: true, NotUpdateable: true}
	}

	return &core.Schema{ObjectClasses: []core.ObjectClassInfo{
		account,
		{
			Type: ObjectClassResponsibilityNames,
			Attributes: []core.AttributeInfo{
				readOnly(core.AttrName, core.TypeString),
				readOnly(AttrApplication, core.TypeString),
			},
		},
		{
			Type: ObjectClassApplications,
			Attributes: []core.AttributeInfo{
				readOnly(core.AttrName, core.TypeString),
				readOnly(AttrApplicationShortName, core.TypeString),
			},
		},
	}}
}
