// Command recipes checks and exports the machine recipe catalog.
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/tuning"
)

var configsFlag = &cli.StringFlag{
	Name:    "configs",
	Aliases: []string{"c"},
	Value:   "./configs",
	Usage:   "config directory holding items.json, recipes/ and machines.yaml",
}

func main() {
	cmd := &cli.Command{
		Name:  "recipes",
		Usage: "Inspect the machine recipe catalog",
		Commands: []*cli.Command{
			validateCmd(),
			listCmd(),
			encodeCmd(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load(dir string, logger *log.Logger) (*catalogs.Catalogs, *recipe.Registry, error) {
	cats, err := catalogs.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalogs: %w", err)
	}
	reg, err := recipe.FromCatalog(cats.Recipes, &cats.Items, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("register recipes: %w", err)
	}
	return cats, reg, nil
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Resolve every recipe and check it against the machine types",
		Flags: []cli.Flag{configsFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("configs")
			logger := log.New(os.Stderr, "[recipes] ", 0)
			_, reg, err := load(dir, logger)
			if err != nil {
				return err
			}
			specs, err := tuning.LoadMachines(filepath.Join(dir, "machines.yaml"))
			if err != nil {
				return fmt.Errorf("load machines: %w", err)
			}
			types := map[string]machine.Config{}
			for _, s := range specs {
				c, err := machine.ConfigFromSpec(s, tuning.Defaults())
				if err != nil {
					return err
				}
				types[c.Type] = c
			}

			bad := 0
			for _, r := range reg.All() {
				if !r.Resolved() {
					fmt.Printf("unresolved: %s\n", r.Describe())
					bad++
					continue
				}
				if reason := unservable(r, types); reason != "" {
					fmt.Printf("unservable: %s: %s\n", r.Describe(), reason)
					bad++
				}
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d recipes failed", bad, len(reg.All()))
			}
			fmt.Printf("ok: %d recipes\n", len(reg.All()))
			return nil
		},
	}
}

// unservable explains why no configured machine can run r, or returns "".
func unservable(r *recipe.Recipe, types map[string]machine.Config) string {
	c, ok := types[r.Machine]
	if !ok {
		return fmt.Sprintf("no machine type %q", r.Machine)
	}
	family := false
	for _, f := range c.Families {
		if f == r.Family {
			family = true
		}
	}
	if !family {
		return fmt.Sprintf("%s does not run family %s", c.Type, r.Family)
	}
	if r.PowerGated() != (c.Gate == machine.GatePower) {
		return fmt.Sprintf("%s gate %s does not match the recipe cost", c.Type, c.Gate)
	}
	return ""
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print one line per recipe",
		Flags: []cli.Flag{
			configsFlag,
			&cli.StringFlag{Name: "machine", Aliases: []string{"m"}, Usage: "only recipes of this machine type"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, reg, err := load(cmd.String("configs"), log.New(io.Discard, "", 0))
			if err != nil {
				return err
			}
			only := cmd.String("machine")
			for _, r := range reg.All() {
				if only != "" && r.Machine != only {
					continue
				}
				fmt.Println(r.Describe())
			}
			return nil
		},
	}
}

func encodeCmd() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Write the catalog in client sync form and verify it decodes",
		Flags: []cli.Flag{
			configsFlag,
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default: discard, print digest only)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cats, reg, err := load(cmd.String("configs"), log.New(io.Discard, "", 0))
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := recipe.EncodeAll(&buf, reg.All()); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			back, err := recipe.DecodeAll(bytes.NewReader(buf.Bytes()), &cats.Items)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			if len(back) != len(reg.All()) {
				return fmt.Errorf("decode: %d recipes, want %d", len(back), len(reg.All()))
			}
			if out := cmd.String("output"); out != "" {
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return err
				}
			}
			sum := sha256.Sum256(buf.Bytes())
			fmt.Printf("%d recipes, %d bytes, sha256 %s\n", len(back), buf.Len(), hex.EncodeToString(sum[:]))
			return nil
		},
	}
}
