package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/classam/redis-tance/internal/app/schema"
	"github.com/classam/redis-tance/internal/app/set"
	"github.com/classam/redis-tance/internal/infra/ident"
	"github.com/classam/redis-tance/internal/infra/memstore"
	"github.com/classam/redis-tance/internal/infra/sqlitestore"
)

// The CLI works with plain string members: schema chains carry Go
// upgrade funcs and belong in embedding code, but key layout, TTLs, and
// the set algebra are all exercisable from the shell.

type session struct {
	store set.SetCommands
	close func() error
}

func openSession(opts *RootOptions) (*session, error) {
	if opts.InMemory {
		return &session{store: memstore.New(), close: func() error { return nil }}, nil
	}
	store, err := sqlitestore.Open(opts.StorePath)
	if err != nil {
		return nil, err
	}
	return &session{store: store, close: store.Close}, nil
}

func (s *session) collection(opts *RootOptions, key string) (*set.Collection[string], error) {
	collectionOpts := []set.Option{
		set.WithNamespace(opts.Namespace),
		set.WithExpiry(time.Duration(opts.ExpirySeconds) * time.Second),
	}
	if key != "" {
		collectionOpts = append(collectionOpts, set.WithID(key))
	}
	return set.New[string](s.store, schema.NewPlain(opts.SchemaType), ident.NewULIDGenerator(), collectionOpts...)
}

func newCreateCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Generate a new collection key for the configured type and namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openSession(opts)
			if err != nil {
				return err
			}
			defer session.close()
			collection, err := session.collection(opts, "")
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.JSONOutput, map[string]any{"key": collection.ID()})
		},
	}
}

func newAddCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <key> <member>...",
		Short: "Add members to a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(opts)
			if err != nil {
				return err
			}
			defer session.close()
			collection, err := session.collection(opts, args[0])
			if err != nil {
				return err
			}
			if err := collection.AddAll(cmd.Context(), args[1:]); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.JSONOutput, map[string]any{"added": len(args) - 1})
		},
	}
}

func newMembersCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "members <key>",
		Short: "List every member of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(opts, args[0], func(collection *set.Collection[string]) error {
				members, err := collection.Members(cmd.Context())
				if err != nil {
					return err
				}
				return printMembers(cmd.OutOrStdout(), opts.JSONOutput, members)
			})
		},
	}
}

func newRandCmd(opts *RootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "rand <key>",
		Short: "Sample random members from a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(opts, args[0], func(collection *set.Collection[string]) error {
				members, err := collection.RandMember(cmd.Context(), count)
				if err != nil {
					return err
				}
				return printMembers(cmd.OutOrStdout(), opts.JSONOutput, members)
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of members to sample")
	return cmd
}

func newRemCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rem <key> <member>",
		Short: "Remove a member from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(opts, args[0], func(collection *set.Collection[string]) error {
				return collection.Rem(cmd.Context(), args[1])
			})
		},
	}
}

func newContainsCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contains <key> <member>",
		Short: "Test membership",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(opts, args[0], func(collection *set.Collection[string]) error {
				ok, err := collection.Contains(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts.JSONOutput, map[string]any{"contains": ok})
			})
		},
	}
}

func newCardCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "card <key>",
		Short: "Report a collection's cardinality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(opts, args[0], func(collection *set.Collection[string]) error {
				count, err := collection.Count(cmd.Context())
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts.JSONOutput, map[string]any{"count": count})
			})
		},
	}
}

func newDelCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a collection's backing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(opts, args[0], func(collection *set.Collection[string]) error {
				return collection.Delete(cmd.Context())
			})
		},
	}
}

func newUnionCmd(opts *RootOptions) *cobra.Command {
	var storeAt string
	cmd := &cobra.Command{
		Use:   "union <key> <key>...",
		Short: "Union collections, printing or persisting the result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlgebra(cmd, opts, args, storeAt, algebraOps{
				read:  (*set.Collection[string]).Union,
				store: (*set.Collection[string]).UnionStoreAt,
			})
		},
	}
	cmd.Flags().StringVar(&storeAt, "store-at", "", "persist the result under this key instead of printing it")
	return cmd
}

func newInterCmd(opts *RootOptions) *cobra.Command {
	var storeAt string
	cmd := &cobra.Command{
		Use:   "inter <key> <key>...",
		Short: "Intersect collections, printing or persisting the result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlgebra(cmd, opts, args, storeAt, algebraOps{
				read:  (*set.Collection[string]).Inter,
				store: (*set.Collection[string]).InterStoreAt,
			})
		},
	}
	cmd.Flags().StringVar(&storeAt, "store-at", "", "persist the result under this key instead of printing it")
	return cmd
}

func newDiffCmd(opts *RootOptions) *cobra.Command {
	var storeAt string
	cmd := &cobra.Command{
		Use:   "diff <key> <key>...",
		Short: "Diff collections, printing or persisting the result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlgebra(cmd, opts, args, storeAt, algebraOps{
				read:  (*set.Collection[string]).Diff,
				store: (*set.Collection[string]).DiffStoreAt,
			})
		},
	}
	cmd.Flags().StringVar(&storeAt, "store-at", "", "persist the result under this key instead of printing it")
	return cmd
}

func newOnionCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:    "onion <key>...",
		Short:  "Onion collections",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) > 0 {
				key = args[0]
			}
			return withCollection(opts, key, func(collection *set.Collection[string]) error {
				return collection.Onion()
			})
		},
	}
}

type algebraOps struct {
	read  func(*set.Collection[string], context.Context, ...set.Operand) ([]string, error)
	store func(*set.Collection[string], context.Context, string, ...set.Operand) (*set.Collection[string], error)
}

func runAlgebra(cmd *cobra.Command, opts *RootOptions, args []string, storeAt string, ops algebraOps) error {
	return withCollection(opts, args[0], func(collection *set.Collection[string]) error {
		operands := make([]set.Operand, 0, len(args)-1)
		for _, key := range args[1:] {
			operands = append(operands, set.Key(key))
		}
		if storeAt != "" {
			result, err := ops.store(collection, cmd.Context(), storeAt, operands...)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.JSONOutput, map[string]any{"key": result.ID()})
		}
		members, err := ops.read(collection, cmd.Context(), operands...)
		if err != nil {
			return err
		}
		return printMembers(cmd.OutOrStdout(), opts.JSONOutput, members)
	})
}

func withCollection(opts *RootOptions, key string, fn func(*set.Collection[string]) error) error {
	session, err := openSession(opts)
	if err != nil {
		return err
	}
	defer session.close()
	collection, err := session.collection(opts, key)
	if err != nil {
		return err
	}
	return fn(collection)
}

func printMembers(out io.Writer, asJSON bool, members []string) error {
	if asJSON {
		return printResult(out, true, members)
	}
	for _, member := range members {
		if _, err := fmt.Fprintln(out, member); err != nil {
			return err
		}
	}
	return nil
}

func printResult(out io.Writer, asJSON bool, value any) error {
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	}
	if fields, ok := value.(map[string]any); ok {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := fmt.Fprintf(out, "%s: %v\n", name, fields[name]); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintf(out, "%v\n", value)
	return err
}
