// Package tance is the embedding API for schema-versioned set
// collections over a key-value store.
//
// A Chain declares an ordered sequence of JSON-schema versions for one
// document type, each with an upgrade func from the version before it.
// Collections bind a chain (or a plain string schema) to a namespaced
// store key: members are validated and canonically serialized on the
// way in, and deserialized plus migrated to the latest version on the
// way out. Collections sharing a schema type and namespace can be
// combined with union, intersection, and difference; anything else is
// rejected before the store is touched.
//
//	client, _ := tance.Open(tance.Config{StorePath: "tance.db"})
//	defer client.Close()
//
//	employees := client.NewChain("employee")
//	_ = employees.AddVersion(v1Schema, nil)
//	_ = employees.AddVersion(v2Schema, addSalary)
//
//	staff, _ := client.NewCollection(employees, tance.WithNamespace("hr"))
//	_ = staff.Add(ctx, tance.Document{"firstname": "Ada", "lastname": "Lovelace"})
package tance
