// SPDX-License-Identifier: MPL-2.0

// Package tree provides the ownership tree used to record which
// build-description file owns which source or nested description.
//
// Nodes live in an arena owned by the Tree. A node refers to its parent
// and children by arena index, so no node keeps another alive and the
// tree is the only owner of every slot. Nodes that are created but not
// yet attached sit in a separate orphan pool; a node is always in
// exactly one of the two pools.
//
// Node identifiers are unique per tree. By default a colliding
// identifier is disambiguated by appending "." until it is free; the
// DuplicateReject policy turns a collision into ErrDuplicateID instead.
//
// Descendants returns nodes leaf-first (every child's own descendants
// precede the child), which is the order a bottom-up build needs.
package tree
