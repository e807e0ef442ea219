package connector_test

import (
	"context"
	"fmt"
	"log"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/connector/registry"

	// Import connectors to register them
	_ "github.com/ajitpratap0/idbridge/pkg/connector/mysql"
	_ "github.com/ajitpratap0/idbridge/pkg/connector/solaris"
)

// Example demonstrates creating a connector via the registry and adding an
// account.
func Example() {
	conn, err := registry.CreateFromMap(map[string]interface{}{
		"type":       "solaris",
		"name":       "sol1",
		"host":       "sol1.internal",
		"login_user": "admin",
		"password":   "${SOLARIS_PASSWORD}",
		"root_user":  "root",
		"timeouts":   map[string]interface{}{"request": "30s"},
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := conn.Initialize(ctx); err != nil {
		log.Fatal(err)
	}
	defer conn.Close(ctx)

	create, ok := conn.(core.CreateOp)
	if !ok {
		log.Fatal("create is not supported")
	}
	uid, err := create.Create(ctx, core.ObjectClassAccount, core.MustAttributeSet(
		core.NameAttribute("jdoe"),
		core.PasswordAttribute("s3cret!"),
		core.NewAttribute("comment", "John Doe"),
	), nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("created", uid)
}

// Example_capabilities lists the operations each registered connector
// supports.
func Example_capabilities() {
	for _, info := range registry.List() {
		fmt.Printf("%s: %v\n", info.Name, info.Capabilities)
	}
}

// Example_filter parses the textual filter syntax.
func Example_filter() {
	f, err := core.ParseFilter(`__NAME__ sw "svc" and not shell eq "/bin/false"`)
	if err != nil {
		log.Fatal(err)
	}
	obj := core.NewConnectorObject(core.ObjectClassAccount, "svc.batch", "svc.batch").
		Add("shell", "/bin/ksh")
	fmt.Println(core.Match(f, obj))
	// Output: true
}
