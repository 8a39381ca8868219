// Package services orchestrates a load run: it opens the database
// session and drives the catalog and event passes over the data roots,
// committing once per source file.
package services
