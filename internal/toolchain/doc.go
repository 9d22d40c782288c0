// SPDX-License-Identifier: MPL-2.0

// Package toolchain is the boundary between fnlbuild and the external
// build toolchain. It fetches candidate build-description files, prepares
// the environment the build binary expects, runs that binary once per
// handle, scrapes the binaries it reports, and links them into the results
// directory.
//
// Nothing here knows how handles are resolved; callers pass plain names
// and paths.
package toolchain
