// Package dsl holds the backend specification model: typed read views over
// an ordered document, the named editing operations, file loading and a
// local advisory lint.
package dsl
