package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

// ClaimSlugCmd returns the claim-slug command.
func ClaimSlugCmd(cfgPath *string, rootOverride *string) *Command {
	return claimCmd(cfgPath, rootOverride, "claim-slug", "Claim a scoped slug label for a document",
		func(store storeSlugClaimer, typ, scope, label, id string) error {
			return store.ClaimSlug(typ, scope, label, id)
		})
}

// ClaimAliasCmd returns the claim-alias command.
func ClaimAliasCmd(cfgPath *string, rootOverride *string) *Command {
	return claimCmd(cfgPath, rootOverride, "claim-alias", "Claim a scoped alias label for a document",
		func(store storeSlugClaimer, typ, scope, label, id string) error {
			return store.ClaimAlias(typ, scope, label, id)
		})
}

// ResolveSlugCmd returns the resolve-slug command.
func ResolveSlugCmd(cfgPath *string, rootOverride *string) *Command {
	return resolveCmd(cfgPath, rootOverride, "resolve-slug", "Resolve a scoped slug label to a document id",
		func(store storeSlugResolver, typ, scope, label string) (string, bool, error) {
			return store.ResolveSlug(typ, scope, label)
		})
}

// ResolveAliasCmd returns the resolve-alias command.
func ResolveAliasCmd(cfgPath *string, rootOverride *string) *Command {
	return resolveCmd(cfgPath, rootOverride, "resolve-alias", "Resolve a scoped alias label to a document id",
		func(store storeSlugResolver, typ, scope, label string) (string, bool, error) {
			return store.ResolveAlias(typ, scope, label)
		})
}

// storeSlugClaimer/storeSlugResolver narrow [docstore.Store] to the one
// method each claim/resolve command needs, so claimCmd/resolveCmd can share
// their flag parsing and error handling across the slug and alias pairs.
type storeSlugClaimer interface {
	ClaimSlug(typ, scope, label, id string) error
	ClaimAlias(typ, scope, label, id string) error
}

type storeSlugResolver interface {
	ResolveSlug(typ, scope, label string) (string, bool, error)
	ResolveAlias(typ, scope, label string) (string, bool, error)
}

func claimCmd(cfgPath, rootOverride *string, name, short string, claim func(storeSlugClaimer, string, string, string, string) error) *Command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: name + " <type> <scope> <label> <id>",
		Short: short,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 4 {
				return fmt.Errorf("usage: docstore %s <type> <scope> <label> <id>", name)
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := claim(store, args[0], args[1], args[2], args[3]); err != nil {
				return err
			}

			o.Println("claimed", args[1]+"/"+args[2], "->", args[3])

			return nil
		},
	}
}

func resolveCmd(cfgPath, rootOverride *string, name, short string, resolve func(storeSlugResolver, string, string, string) (string, bool, error)) *Command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: name + " <type> <scope> <label>",
		Short: short,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("usage: docstore %s <type> <scope> <label>", name)
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			id, ok, err := resolve(store, args[0], args[1], args[2])
			if err != nil {
				return err
			}

			if !ok {
				return errors.New("no claim found")
			}

			o.Println(id)

			return nil
		},
	}
}
