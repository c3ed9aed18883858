// Package ir provides the typed argument representation for quark.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed sum type; every consumer type-switches exhaustively
//   - Buffers are owning handles: data, element count, source path, and a
//     once-only Release accounted against a Ledger
//   - A buffer's count always equals its source file size / element width
//   - Signatures are positional; order is part of an operator's identity
package ir
