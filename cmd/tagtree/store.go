package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/chazu/tagtree/store"
	"github.com/chazu/tagtree/tag"
	"github.com/chazu/tagtree/wire"
)

// handleStoreCommand processes the `tagtree store` subcommands.
// Usage:
//
//	tagtree store put <file> [--id uuid] [--name n]
//	tagtree store get <id> [-o file]
//	tagtree store deps <id>
//	tagtree store dependents <id>
//	tagtree store list
//	tagtree store rm <id>
func (e *env) handleStoreCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tagtree store put|get|deps|dependents|list|rm ...")
	}
	s, err := store.Open(e.manifest.StorePath())
	if err != nil {
		return err
	}
	defer s.Close()

	sub, subArgs := args[0], args[1:]
	switch sub {
	case "put":
		return e.storePut(s, subArgs)
	case "get":
		return e.storeGet(s, subArgs)
	case "deps":
		id, err := idArg("deps", subArgs)
		if err != nil {
			return err
		}
		deps, err := s.Dependencies(id)
		if err != nil {
			return err
		}
		e.printIDs(deps)
		return nil
	case "dependents":
		id, err := idArg("dependents", subArgs)
		if err != nil {
			return err
		}
		users, err := s.Dependents(id)
		if err != nil {
			return err
		}
		e.printIDs(users)
		return nil
	case "list":
		recs, err := s.List()
		if err != nil {
			return err
		}
		for _, r := range recs {
			fmt.Fprintf(e.stdout, "%s  %-24s %8d  %x  %s\n",
				r.ID, r.Name, r.Size, r.Digest[:8], r.Updated.Format("2006-01-02 15:04:05"))
		}
		return nil
	case "rm":
		id, err := idArg("rm", subArgs)
		if err != nil {
			return err
		}
		return s.Delete(id)
	default:
		return fmt.Errorf("unknown store command %q", sub)
	}
}

func idArg(cmd string, args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, fmt.Errorf("usage: tagtree store %s <id>", cmd)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid asset id %q: %w", args[0], err)
	}
	return id, nil
}

func (e *env) printIDs(ids []uuid.UUID) {
	for _, id := range ids {
		fmt.Fprintln(e.stdout, id)
	}
}

func (e *env) storePut(s *store.Store, args []string) error {
	flagSet := pflag.NewFlagSet("store put", pflag.ContinueOnError)
	flagSet.SetOutput(e.stderr)
	idFlag := flagSet.String("id", "", "Asset id (default: a new random id)")
	name := flagSet.String("name", "", "Asset name (default: the file name)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: tagtree store put <file> [--id uuid] [--name n]")
	}
	path := flagSet.Arg(0)

	id := uuid.New()
	if *idFlag != "" {
		var err error
		if id, err = uuid.Parse(*idFlag); err != nil {
			return fmt.Errorf("invalid asset id %q: %w", *idFlag, err)
		}
	}
	if *name == "" {
		*name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := s.PutPacked(id, *name, data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(e.stdout, "%s %s (%d dependencies)\n", rec.ID, rec.Name, len(rec.Dependencies))
	return nil
}

func (e *env) storeGet(s *store.Store, args []string) error {
	flagSet := pflag.NewFlagSet("store get", pflag.ContinueOnError)
	flagSet.SetOutput(e.stderr)
	output := flagSet.StringP("output", "o", "", "Write the packed asset to this file instead of dumping it")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	id, err := idArg("get", flagSet.Args())
	if err != nil {
		return err
	}
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	if *output != "" {
		return os.WriteFile(*output, rec.Data, 0o644)
	}
	t, err := wire.Unpack(rec.Data)
	if err != nil {
		return err
	}
	return tag.Dump(e.stdout, t)
}
