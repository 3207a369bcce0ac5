// Package codec encodes and decodes dynamic values against a resolved
// type reference.
//
// Values form a small sealed set mirroring the Borsh data model. The codec
// never consults discriminators; callers strip or prepend them (see
// clientgen). JSON conversion gives the CLI and the harness a textual form:
// integers are JSON numbers of any width, bytes are hex strings, public keys
// are base58, structs are objects in declaration order and enum values are
// single-key objects naming the variant.
package codec
