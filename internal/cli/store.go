package cli

import (
	"os"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// openStoreForCommand resolves the merged file+flag configuration for one
// command invocation and opens the store it names. rootOverride, when
// non-empty, wins over whatever the config file says (global --root flag).
func openStoreForCommand(cfgPath, rootOverride string) (*docstore.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := resolveConfig(cfgPath, cwd)
	if err != nil {
		return nil, err
	}

	if rootOverride != "" {
		cfg.Root = rootOverride
	}

	return openStore(cfg)
}
