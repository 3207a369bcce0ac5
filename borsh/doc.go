// Package borsh is the wire runtime shared by generated clients and the
// dynamic codec.
//
// It layers Anchor's conventions on top of github.com/gagliardetto/binary:
// little-endian fixed-width integers, u32 length prefixes for sequences,
// strings and byte buffers, a one-byte tag for options, and leading
// discriminators on instruction and account data.
//
// Encoder and Decoder use sticky errors: after the first failure every
// further call is a no-op, and Err reports the failure. This keeps
// generated code linear.
package borsh
