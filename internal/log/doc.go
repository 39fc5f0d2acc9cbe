// Package log builds the application's slog logger. The handler masks
// credential-bearing attributes (proxy and basic-auth passwords, HTTP
// authorization headers, cookies) so crawl configurations can be
// logged without leaking secrets, even in verbose mode.
package log
