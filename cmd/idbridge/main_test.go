package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/connector/registry"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func TestParseAttributes(t *testing.T) {
	attrs, err := parseAttributes([]string{
		"__NAME__=jdoe",
		"users=jdoe",
		"users=alice",
		"comment=a=b",
		"shell=",
	})
	require.NoError(t, err)

	name, err := attrs.RequireString(core.AttrName)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", name)

	users, ok := attrs.Find("users")
	require.True(t, ok)
	assert.Equal(t, []string{"jdoe", "alice"}, users.StringValues())

	comment, _ := attrs.Find("comment")
	assert.Equal(t, []interface{}{"a=b"}, comment.Values)

	shell, ok := attrs.Find("shell")
	require.True(t, ok)
	assert.True(t, shell.IsEmpty())

	_, err = parseAttributes([]string{"novalue"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidAttribute))
	_, err = parseAttributes([]string{"=x"})
	assert.Error(t, err)
}

func TestObjectClass(t *testing.T) {
	assert.Equal(t, core.ObjectClassAccount, objectClass("account"))
	assert.Equal(t, core.ObjectClassGroup, objectClass("Group"))
	assert.Equal(t, core.ObjectClass("responsibilityNames"), objectClass("responsibilityNames"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(errors.New(errors.ErrorTypeUnknownUid, "x")))
	assert.Equal(t, 4, exitCode(errors.New(errors.ErrorTypeAlreadyExists, "x")))
	assert.Equal(t, 8, exitCode(errors.New(errors.ErrorTypeTimeout, "x")))
	assert.Equal(t, 1, exitCode(os.ErrNotExist))
}

func TestSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solaris.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
type: solaris
name: sol1
host: sol1.internal
login_user: admin
timeouts:
  request: 30s
`), 0o600))
	t.Setenv("IDBRIDGE_PASSWORD", "from-env")
	t.Setenv("IDBRIDGE_TIMEOUTS_REQUEST", "2m")

	c := &cli{v: newViper()}
	c.v.Set("config", path)
	settings, err := c.settings()
	require.NoError(t, err)

	assert.Equal(t, "solaris", settings["type"])
	assert.Equal(t, "from-env", settings["password"])
	timeouts, ok := settings["timeouts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2m", timeouts["request"])

	c.v.Set("config", "")
	_, err = c.settings()
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCommands_Registered(t *testing.T) {
	root := (&cli{v: newViper()}).rootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"version", "list", "schema", "test", "create", "update", "delete", "search", "get", "authenticate", "monitor"} {
		assert.Contains(t, names, want)
	}

	for _, typ := range []string{"mysql", "oracleerp", "solaris"} {
		assert.True(t, registry.Has(typ), typ)
	}
}

func TestListCommand(t *testing.T) {
	root := (&cli{v: newViper()}).rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"list"})
	require.NoError(t, root.Execute())

	var infos []registry.ConnectorInfo
	require.NoError(t, gojson.Unmarshal(out.Bytes(), &infos))
	assert.Len(t, infos, 3)
}

// stubConnector reports a fixed health result
type stubConnector struct {
	health error
}

func (s *stubConnector) Name() string { return "stub" }
func (s *stubConnector) Version() string { return "0.0.1" }
func (s *stubConnector) Initialize(ctx context.Context) error { return nil }
func (s *stubConnector) Close(ctx context.Context) error { return nil }
func (s *stubConnector) Health(ctx context.Context) error { return s.health }
func (s *stubConnector) Metrics() map[string]interface{} { return map[string]interface{}{"operations": 0} }

func TestMonitorHandler(t *testing.T) {
	tests := []struct {
		name   string
		health error
		want   int
	}{
		{"healthy", nil, http.StatusOK},
		{"unhealthy", errors.New(errors.ErrorTypeHealth, "ssh refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			monitorHandler(&stubConnector{health: tt.health}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]interface{}
			require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "stub", body["connector"])
		})
	}

	rec := httptest.NewRecorder()
	monitorHandler(&stubConnector{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCapability(t *testing.T) {
	_, err := capability[core.CreateOp](&stubConnector{}, core.OpCreate)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupported))
}
