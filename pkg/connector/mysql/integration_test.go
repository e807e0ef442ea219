package mysql

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/testutil"
)

// MySQLIntegrationSuite provisions a real account against the server named
// by IDBRIDGE_MYSQL_HOST.
type MySQLIntegrationSuite struct {
	testutil.IntegrationTestSuite
	connector *Connector
}

func TestMySQLIntegration(t *testing.T) {
	suite.Run(t, &MySQLIntegrationSuite{
		IntegrationTestSuite: testutil.IntegrationTestSuite{
			RequiredEnv: []string{"IDBRIDGE_MYSQL_HOST", "IDBRIDGE_MYSQL_USER", "IDBRIDGE_MYSQL_PASSWORD"},
		},
	})
}

func (s *MySQLIntegrationSuite) SetupSuite() {
	s.IntegrationTestSuite.SetupSuite()

	cfg := config.NewMySQLConfig("mysql-integration")
	cfg.Host = s.Env("IDBRIDGE_MYSQL_HOST")
	cfg.User = s.Env("IDBRIDGE_MYSQL_USER")
	cfg.Password = s.Env("IDBRIDGE_MYSQL_PASSWORD")
	if port, err := strconv.Atoi(s.Env("IDBRIDGE_MYSQL_PORT")); err == nil {
		cfg.Port = port
	}
	s.Require().NoError(cfg.Validate())

	s.connector = New(cfg)
	s.Require().NoError(s.connector.Initialize(s.Context()))
}

func (s *MySQLIntegrationSuite) TearDownSuite() {
	if s.connector != nil {
		s.NoError(s.connector.Close(s.Context()))
	}
	s.IntegrationTestSuite.TearDownSuite()
}

func (s *MySQLIntegrationSuite) TestAccountLifecycle() {
	ctx := s.Context()
	name := "it_" + uuid.NewString()[:8]
	renamed := name + "_r"

	uid, err := s.connector.Create(ctx, core.ObjectClassAccount,
		core.MustAttributeSet(core.NameAttribute(name), core.PasswordAttribute("Initial#Pw1")), nil)
	s.Require().NoError(err)

	_, err = s.connector.Authenticate(ctx, core.ObjectClassAccount, name, core.NewGuardedString("Initial#Pw1"), nil)
	s.NoError(err)

	uid, err = s.connector.Update(ctx, core.ObjectClassAccount, uid,
		core.MustAttributeSet(core.NameAttribute(renamed), core.PasswordAttribute("Changed#Pw2")), nil)
	s.Require().NoError(err)
	s.Equal(core.Uid(renamed), uid)

	obj, err := core.GetObject(ctx, s.connector, core.ObjectClassAccount, uid, nil)
	s.Require().NoError(err)
	s.Require().NotNil(obj)

	s.NoError(s.connector.Delete(ctx, core.ObjectClassAccount, uid, nil))
}
