// Package records decodes JSON-lines data files into sparketl.Record values.
//
// Every non-blank physical line must hold exactly one JSON object. A line that
// fails to decode fails the whole file; there is no partial recovery.
package records
