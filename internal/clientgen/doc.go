// Package clientgen turns a compiled model into a client surface.
//
// Generate returns runtime builders and decoders backed by the dynamic
// codec; GoSource emits the same surface as Go source that depends only on
// the borsh runtime and solana-go. Both assume a model that has passed
// through compiler.Compile: every reference resolved and every
// discriminator assigned.
package clientgen
