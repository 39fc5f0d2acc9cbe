// Package config holds the crawl settings: mode, concurrency and
// throughput limits, identity and proxy options, the selected crawl
// items, exclusion rules, and custom extraction definitions. Settings
// are built by a pure defaults factory and passed explicitly through
// constructors; there is no global configuration state.
package config
