// Command sessiond runs the goSession demo server.
//
//	sessiond serve --config sessiond.yaml
//	sessiond config check --config sessiond.yaml
package main

import (
	// Registers the "postgres" database/sql driver for store.kind: postgres.
	_ "github.com/lib/pq"
)

func main() {
	Execute()
}
