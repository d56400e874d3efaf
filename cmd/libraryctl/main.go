// cmd/libraryctl is a small administrative CLI for the catalog: it seeds
// books from a JSON file and lists what the library holds. It talks to the
// same postgres database as the server.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/MrSuraphong/library-testing/internal/database"
	"github.com/MrSuraphong/library-testing/internal/model"
	"github.com/MrSuraphong/library-testing/internal/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	root := &cobra.Command{
		Use:   "libraryctl",
		Short: "Administrative CLI for the library catalog",
	}
	root.AddCommand(seedCmd(), listCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openBooks(ctx context.Context) (*repository.BookRepository, func(), error) {
	pool, err := database.NewPool(ctx, database.ConfigFromEnv())
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := database.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("schema: %w", err)
	}
	return repository.NewBookRepository(pool), pool.Close, nil
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <books.json>",
		Short: "Import catalog entries from a JSON file",
		Long: `Import catalog entries from a JSON array of objects with
title, author, quantity and optional cover_image fields.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			var reqs []model.CreateBookRequest
			if err := json.Unmarshal(data, &reqs); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			books, closePool, err := openBooks(cmd.Context())
			if err != nil {
				return err
			}
			defer closePool()

			imported, skipped := 0, 0
			for _, req := range reqs {
				req.Title = strings.TrimSpace(req.Title)
				req.Author = strings.TrimSpace(req.Author)
				if req.Title == "" || req.Author == "" || req.Quantity < 0 {
					fmt.Fprintf(os.Stderr, "skipping invalid entry %q\n", req.Title)
					skipped++
					continue
				}
				book, err := books.CreateBook(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("import %q: %w", req.Title, err)
				}
				fmt.Printf("imported %q by %s (%d copies, id %s)\n",
					book.Title, book.Author, book.TotalCopies, book.ID)
				imported++
			}
			fmt.Printf("done: %d imported, %d skipped\n", imported, skipped)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, closePool, err := openBooks(cmd.Context())
			if err != nil {
				return err
			}
			defer closePool()

			all, err := books.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range all {
				fmt.Printf("%s  %-40q %-24s %d/%d available\n",
					b.ID, b.Title, b.Author, b.AvailableCopies, b.TotalCopies)
			}
			fmt.Printf("%d books\n", len(all))
			return nil
		},
	}
}
