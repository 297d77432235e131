// Package formats reads and writes Ragnarok Online binary file formats.
//
// Only RSM models are supported. Strings are stored as fixed-size EUC-KR
// fields and are returned as UTF-8.
package formats
