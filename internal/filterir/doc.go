// Package filterir defines the filter intermediate representation shared by
// the resolver, the canonicalizer, the token layer and the SQL compiler.
//
// A filter is a tree of Nodes rooted at a Group:
//
//	[Intent] → resolver → [ResolvedSpec] → compiler → [CompiledFilter]
//
// Node is a sealed interface. Only Condition, SemanticRef and Group
// implement it, so every consumer can switch exhaustively over node kinds.
// SemanticRef only exists on the way into the resolver; a ResolvedSpec that
// still carries one is rejected by the compiler.
//
// All values in this package are plain data. Nothing here mutates its
// inputs, and nothing keeps state between calls.
package filterir
