// Package resource implements the address scheme used to name recipe
// collections and individual rows.
//
// Addresses have the form:
//
//	content://com.hashicorp.recipebox/{recipes|ingredients|instructions}[/{id}]
//
// A collection address names every row of a table; an item address names a
// single row by its numeric id.
package resource
