// Package cli provides the interactive vaultctl client for SecureCloud.
//
// The App keeps one explicit client.Session, created by login and dropped
// by logout or when the server rejects the token. Passwords and encryption
// keys are read from the terminal without echo and wiped after use.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
