package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabstash/internal/errors"
)

// toolArgs converts a tool call's arguments into T. Every name in required
// must be present, but may be empty: "" is a valid group title.
// Failures are INVALID_REQUEST.
func toolArgs[T any](req mcp.CallToolRequest, required ...string) (T, error) {
	var out T
	args := req.GetArguments()
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return out, errors.NewInvalidRequest(fmt.Sprintf("missing required argument %q", name))
		}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return out, errors.NewInvalidRequest(fmt.Sprintf("arguments are not JSON: %v", err))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return out, errors.NewInvalidRequest(
				fmt.Sprintf("argument %q must be %v, got %s", typeErr.Field, typeErr.Type, typeErr.Value))
		}
		return out, errors.NewInvalidRequest(fmt.Sprintf("invalid arguments: %v", err))
	}
	return out, nil
}
