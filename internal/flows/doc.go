// Package flows ranks, cumulates, shares out and groups day records for
// presentation. Everything here is pure and in-memory; callers own sorting
// and persistence.
package flows
