// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers build mod trees on disk (WriteTree, WriteFile), corrupt
// files in place (FlipBytes) and release resources (MustClose, DeferClose).
package testutil
