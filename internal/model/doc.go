// Package model defines the data structures shared between the crawl
// engine, the classifier, and the persistence layer: fetch exchanges,
// page rows, and the column vocabulary of the crawl database.
package model
