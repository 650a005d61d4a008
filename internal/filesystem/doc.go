/*
Package filesystem manages the converter's temp root.

A Workspace is created once at startup from the configured TEMP_DIR and
passed to the handlers. Each request opens a Scope, stages its upload and
output through it, and defers Scope.Cleanup:

	scope := ws.NewScope()
	defer scope.Cleanup()

	input, _, err := scope.Save(upload, "jpg")
	output := scope.NewPath("webp")

File names are random UUIDs. Cleanup never fails the request; deletion
errors are logged at WARN and counted through the Observer.

Stat, open and remove retry with exponential backoff on ESTALE, which shows
up when the temp root is an NFS volume shared between replicas.
*/
package filesystem
