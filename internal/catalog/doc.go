// SPDX-License-Identifier: MPL-2.0

// Package catalog maps source identifiers to the build-description ("fnl")
// files that own them and orders those files for building.
//
// Resolution is a fixed-point search. Every pass searches the candidate
// directory for the terms of all unlocked records at once. A line owns a
// term when it holds the term as its only token and lies strictly below the
// HANDLE declaration of its file. The owning file's handle joins the tree as
// a description record and is itself searched on the next pass, so chains of
// descriptions nest until a pass finds no further owner. Sources with no
// owner are dropped; descriptions with no owner become top-level branches.
//
// The searcher is the only collaborator that touches the outside world. It
// is an interface so tests can substitute a fake.
package catalog
