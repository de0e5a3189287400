package cli

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// parseJSONCObject decodes a JWCC (JSON-with-comments) object literal, the
// syntax accepted everywhere this CLI takes a filter or document body on
// the command line so an operator can annotate a saved query with "//"
// comments before pasting it back in.
func parseJSONCObject(raw string) (map[string]any, error) {
	standardized, err := hujson.Standardize([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JWCC: %w", err)
	}

	var v map[string]any

	if err := json.Unmarshal(standardized, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}

	return v, nil
}
