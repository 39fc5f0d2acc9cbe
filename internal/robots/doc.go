// Package robots implements the robots.txt rules engine: it isolates
// the ruleset for the active user agent and resolves allow/disallow
// precedence by rule specificity (longest matched literal wins).
package robots
