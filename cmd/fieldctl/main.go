// Command fieldctl runs operational tasks against a fieldops deployment:
// schema migration, seeding, key generation, user and organization
// administration and queue inspection.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
