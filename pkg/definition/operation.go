// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// OpCreate stores the document as-is. It is the default.
	OpCreate Operation = "create"
	// OpModify overrides fields of the existing document recursively.
	OpModify Operation = "modify"
	// OpExtend merges nested objects and appends arrays.
	OpExtend Operation = "extend"
	// OpReplace supersedes the existing document entirely.
	OpReplace Operation = "replace"
)

// ErrUnknownOperation is returned for an $operation value outside the four operations.
var ErrUnknownOperation = errors.New("unknown operation")

// Operation is the merge directive attached to a definition file.
type Operation string

// ParseOperation parses s case-insensitively. An empty string is OpCreate.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case "":
		return OpCreate, nil
	case OpCreate, OpModify, OpExtend, OpReplace:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q (expected create, modify, extend or replace)", ErrUnknownOperation, s)
	}
}

// String returns the operation name.
func (o Operation) String() string {
	return string(o)
}

// IsMerge reports whether the operation combines with an existing definition.
func (o Operation) IsMerge() bool {
	return o == OpModify || o == OpExtend || o == OpReplace
}
