// Package pass contains core domain types for wallet pass packaging.
//
// It defines Asset (a named byte payload) and Pass (the descriptor plus its
// auxiliary assets), the fixed archive entry names and the error taxonomy
// shared by the collector, manifest builder, signer and archive writer.
package pass
