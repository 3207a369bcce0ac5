// Package ir provides the canonical, dialect-agnostic model of an Anchor
// program interface.
//
// Both IDL generations normalize into the types in this package. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Type references are values (TypeRef), never pointers into the model
//   - Types live in a single declaration-ordered TypeTable
//   - Discriminators are assigned once by the compiler and never mutated after
//   - The Origin tag records which dialect produced the model
//   - All JSON keys in the canonical form use snake_case
package ir
