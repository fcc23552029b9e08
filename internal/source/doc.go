// Package source provides data sources for check templates: records,
// SQL databases and the enumerators that turn them into instances.
//
// A Record is one row of data keyed by field name. Records come from inline
// datasets (see package suite) or from SQL queries run against a DB.
// Records and Query project them as instances, binding each Record on the
// instance environ.
package source
