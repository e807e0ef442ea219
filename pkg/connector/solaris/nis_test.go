package solaris

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/testutil"
)

const (
	nisPasswd = "/var/yp/src/passwd"
	nisShadow = "/var/yp/src/shadow"
	nisGroup  = "/var/yp/src/group"
)

func nisConfig() *config.SolarisConfig {
	cfg := testConfig()
	cfg.RootUser = ""
	cfg.RootPassword = ""
	cfg.SudoAuthorization = true
	cfg.SystemDatabaseType = config.SystemDatabaseNIS
	cfg.NISShadow = true
	cfg.HomeBaseDirectory = ""
	cfg.LoginShell = ""
	cfg.MakeDirectory = false
	return cfg
}

func TestNIS_CreateAccount(t *testing.T) {
	c, shell, _ := newTestConnector(t, nisConfig(),
		fail("sudo grep '^jdoe:' "+nisPasswd, "", 1),
		reply(sudoSh(nextIDCommand(nisPasswd)), "1005"),
		reply(sudoSh(lookupGidCommand(nisGroup, "staff")), "10"),
		ok(sudoSh(appendLineCommand(nisPasswd, "jdoe:x:1005:10:John Doe:/home/jdoe:/bin/sh"))),
		ok(sudoSh(appendLineCommand(nisShadow, "jdoe:*LK*:::::::"))),
		ok(sudoSh(makeCommand("/var/yp", "passwd"))),
		passwd("sudo passwd -r nis jdoe"),
	)

	uid, err := c.Create(context.Background(), core.ObjectClassAccount, core.MustAttributeSet(
		core.NameAttribute("jdoe"),
		core.PasswordAttribute("s3cret!"),
		core.NewAttribute(AttrComment, "John Doe"),
		core.NewAttribute(AttrGroup, "staff"),
	), nil)
	require.NoError(t, err)
	assert.Equal(t, core.Uid("jdoe"), uid)
	assert.Equal(t, []string{"admin-pw", "s3cret!", "s3cret!"}, shell.passwords())
}

func TestNIS_CreateAccountWithIDs(t *testing.T) {
	cfg := nisConfig()
	cfg.NISShadow = false
	cfg.MakeDirectory = true
	c, _, _ := newTestConnector(t, cfg,
		fail("sudo grep '^svc\\.batch:' "+nisPasswd, "", 1),
		ok(sudoSh(appendLineCommand(nisPasswd, "svc.batch:*LK*:2001:20::/opt/batch:/bin/ksh"))),
		ok(sudoSh(membershipCommand(nisGroup, "svc.batch", []string{"ops"}))),
		ok(sudoSh(makeCommand("/var/yp", "group"))),
		ok(sudoSh(makeCommand("/var/yp", "passwd"))),
		ok(sudoSh(mkhomeCommand("/opt/batch", "2001", "20"))),
	)

	_, err := c.Create(context.Background(), core.ObjectClassAccount, core.MustAttributeSet(
		core.NameAttribute("svc.batch"),
		core.NewAttribute(AttrUidNumber, 2001),
		core.NewAttribute(AttrGroup, "20"),
		core.NewAttribute(AttrDir, "/opt/batch"),
		core.NewAttribute(AttrShell, "/bin/ksh"),
		core.NewAttribute(AttrSecondaryGroup, "ops"),
	), nil)
	require.NoError(t, err)
}

func TestNIS_CreateRejected(t *testing.T) {
	c, _, _ := newTestConnector(t, nisConfig(),
		reply("sudo grep '^jdoe:' "+nisPasswd, "jdoe:x:1005:10:John Doe:/home/jdoe:/bin/sh"),
	)
	ctx := context.Background()

	_, err := c.Create(ctx, core.ObjectClassAccount, core.MustAttributeSet(core.NameAttribute("jdoe")), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAlreadyExists))

	tests := []struct {
		name string
		attr core.Attribute
	}{
		{"lock", core.NewAttribute(core.AttrLockOut, true)},
		{"aging", core.NewAttribute(AttrMax, 90)},
		{"rbac", core.NewAttribute(AttrRole, "operator")},
		{"expire", core.NewAttribute(AttrExpire, "12/31/2027")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(ctx, core.ObjectClassAccount,
				core.MustAttributeSet(core.NameAttribute("bob"), tt.attr), nil)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupported))
		})
	}
}

func TestNIS_UpdateAccount(t *testing.T) {
	c, _, _ := newTestConnector(t, nisConfig(),
		reply("ypcat group", "staff::10:\nops::101:jdoe"),
		reply("ypmatch jdoe passwd", "jdoe:x:1005:10:John Doe:/home/jdoe:/bin/sh"),
		fail("sudo grep '^jdoe2:' "+nisPasswd, "", 1),
		ok(sudoSh(updateFieldsCommand(nisPasswd, "jdoe", map[int]string{1: "jdoe2", 7: "/bin/ksh"}))),
		ok(sudoSh(renameLineCommand(nisShadow, "jdoe", "jdoe2"))),
		ok(sudoSh(renameMemberCommand(nisGroup, "jdoe", "jdoe2"))),
		ok(sudoSh(membershipCommand(nisGroup, "jdoe2", []string{}))),
		ok(sudoSh(makeCommand("/var/yp", "group"))),
		ok(sudoSh(makeCommand("/var/yp", "passwd"))),
	)

	uid, err := c.Update(context.Background(), core.ObjectClassAccount, "jdoe", core.MustAttributeSet(
		core.NameAttribute("jdoe2"),
		core.NewAttribute(AttrShell, "/bin/ksh"),
		core.NewAttribute(AttrSecondaryGroup),
	), nil)
	require.NoError(t, err)
	assert.Equal(t, core.Uid("jdoe2"), uid)
}

func TestNIS_RenameOntoExistingName(t *testing.T) {
	c, _, _ := newTestConnector(t, nisConfig(),
		reply("ypcat group", "staff::10:"),
		reply("ypmatch jdoe passwd", "jdoe:x:1005:10:John Doe:/home/jdoe:/bin/sh"),
		reply("sudo grep '^bob:' "+nisPasswd, "bob:x:1006:10::/home/bob:/bin/ksh"),
		reply("ypcat group", "qa::102:jdoe\ndev::200:"),
		reply("sudo grep '^dev:' "+nisGroup, "dev::200:"),
	)
	ctx := context.Background()

	_, err := c.Update(ctx, core.ObjectClassAccount, "jdoe", core.MustAttributeSet(core.NameAttribute("bob")), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAlreadyExists))

	_, err = c.Update(ctx, core.ObjectClassGroup, "qa", core.MustAttributeSet(core.NameAttribute("dev")), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAlreadyExists))
}

func TestNIS_SearchAccounts(t *testing.T) {
	c, _, _ := newTestConnector(t, nisConfig(),
		reply("ypcat group", "staff::10:\nops::101:jdoe"),
		reply("ypcat passwd", "jdoe:x:1005:10:John Doe:/home/jdoe:/bin/sh\nbob:x:1006:10::/home/bob:/bin/ksh"),
	)

	objs, err := testutil.Collect(context.Background(), c, core.ObjectClassAccount,
		core.Equals(AttrSecondaryGroup, "ops"), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"jdoe"}, testutil.Names(objs))
	g, _ := objs[0].Attribute(AttrGroup)
	assert.Equal(t, []interface{}{"staff"}, g.Values)
}

func TestNIS_DeleteAccount(t *testing.T) {
	c, _, _ := newTestConnector(t, nisConfig(),
		reply("ypcat group", "staff::10:"),
		reply("ypmatch jdoe passwd", "jdoe:x:1005:10:John Doe:/home/jdoe:/bin/sh"),
		ok(sudoSh(deleteLineCommand(nisPasswd, "jdoe"))),
		ok(sudoSh(deleteLineCommand(nisShadow, "jdoe"))),
		ok(sudoSh(membershipCommand(nisGroup, "jdoe", nil))),
		ok(sudoSh(makeCommand("/var/yp", "passwd"))),
		ok(sudoSh(makeCommand("/var/yp", "group"))),
		ok("sudo rm -rf '/home/jdoe'"),
	)

	require.NoError(t, c.Delete(context.Background(), core.ObjectClassAccount, "jdoe", nil))
}

func TestNIS_Groups(t *testing.T) {
	c, _, _ := newTestConnector(t, nisConfig(),
		fail("sudo grep '^qa:' "+nisGroup, "", 1),
		reply(sudoSh(nextIDCommand(nisGroup)), "102"),
		ok(sudoSh(appendLineCommand(nisGroup, "qa::102:jdoe"))),
		ok(sudoSh(makeCommand("/var/yp", "group"))),
		reply("ypcat group", "qa::102:jdoe"),
		ok(sudoSh(updateFieldsCommand(nisGroup, "qa", map[int]string{4: "jdoe,bob"}))),
		ok(sudoSh(makeCommand("/var/yp", "group"))),
		reply("ypcat group", "qa::102:jdoe,bob"),
		ok(sudoSh(deleteLineCommand(nisGroup, "qa"))),
		ok(sudoSh(makeCommand("/var/yp", "group"))),
	)
	ctx := context.Background()

	_, err := c.Create(ctx, core.ObjectClassGroup, core.MustAttributeSet(
		core.NameAttribute("qa"), core.NewAttribute(AttrUsers, "jdoe")), nil)
	require.NoError(t, err)

	_, err = c.Update(ctx, core.ObjectClassGroup, "qa", core.MustAttributeSet(
		core.NewAttribute(AttrUsers, "jdoe", "bob")), nil)
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, core.ObjectClassGroup, "qa", nil))
}

func TestRemovableHome(t *testing.T) {
	assert.True(t, removableHome("/home/jdoe"))
	assert.True(t, removableHome("/export/home/jdoe/"))
	assert.False(t, removableHome("/"))
	assert.False(t, removableHome("/usr"))
	assert.False(t, removableHome("home/jdoe"))
	assert.False(t, removableHome("/home/.."))
}
