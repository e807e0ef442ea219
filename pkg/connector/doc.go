// Package connector is the root of the idbridge connector framework.
//
// # Architecture Overview
//
// The connector package is organized into several sub-packages:
//
//   - core: Defines the provisioning interface every connector implements.
//     Connector covers lifecycle, health and metrics; optional operation
//     interfaces (SchemaOp, TestOp, CreateOp, UpdateOp, DeleteOp, SearchOp,
//     AuthenticateOp) are discovered by type assertion, see core.Operations.
//
//   - base: Provides BaseConnector with retries, circuit breaking, rate
//     limiting, health checks, metrics and tracing. Every connector embeds it
//     and runs each operation through BaseConnector.RunOperation.
//
//   - registry: Maps connector type names to config and connector factories.
//     Connectors self-register during initialization.
//
//   - mysql, oracleerp, solaris: The connectors.
//
// # Core Concepts
//
// Objects: A connector manages objects of one or more object classes
// (core.ObjectClassAccount, core.ObjectClassGroup or connector specific
// classes). Objects are identified by a core.Uid and carry attributes.
// Operational attributes use the __NAME__ style (__PASSWORD__, __ENABLE__).
//
// Schema: Each connector publishes the attributes it understands. Create and
// Update reject attributes the schema does not list.
//
// Errors: Operations return *errors.Error values. Provisioning outcomes use
// dedicated types (already_exists, unknown_uid, invalid_attribute,
// invalid_credential, unsupported) so callers can branch on them.
//
// # Example Usage
//
//	conn, err := registry.CreateFromMap(settings)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := conn.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close(ctx)
//
//	search := conn.(core.SearchOp)
//	err = search.Search(ctx, core.ObjectClassAccount, core.StartsWith(core.AttrName, "svc"),
//		func(obj *core.ConnectorObject) bool {
//			fmt.Println(obj.Name)
//			return true
//		}, nil)
package connector
