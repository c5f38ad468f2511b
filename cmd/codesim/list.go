package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/codesim/internal/library"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/paging"
	"github.com/abelbrown/codesim/internal/selection"
)

func (c *cli) listCmd() *cobra.Command {
	var (
		page, size int
		sortBy     string
		desc       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of the uploaded file library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be at least 1")
			}
			order, err := library.ParseSortBy(sortBy)
			if err != nil {
				return fmt.Errorf("--sort: %w", err)
			}
			if size <= 0 {
				size = c.cfg.Library.PageSize
			}

			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()

			// The first page tells us how many pages exist, so a page
			// past the end is reported as a usage error.
			p, err := e.client.ListFiles(cmd.Context(), 0, size)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if p.Page.TotalElements == 0 {
				fmt.Fprintln(w, "No files uploaded yet.")
				return nil
			}
			if page > 1 {
				if last := paging.LastIndex(p.Page); page-1 > last {
					return fmt.Errorf("--page %d is past the last page (%d)", page, last+1)
				}
				if p, err = e.client.ListFiles(cmd.Context(), page-1, size); err != nil {
					return err
				}
			}

			view, tag := library.NewView(size).
				WithQuery(library.Query{SortBy: order, Desc: desc}).
				Reload()
			if view, err = view.Accept(tag, p); err != nil {
				return err
			}
			rows := view.Rows(selection.Set{})
			files := make([]model.CodeFile, len(rows))
			for i, r := range rows {
				files[i] = r.File
			}

			if err := writeFiles(w, files); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s · %d files\n", paging.Label(view.Page()), view.Page().TotalElements)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&size, "size", 0, "files per page (default library.page_size)")
	cmd.Flags().StringVar(&sortBy, "sort", "name", "order within the page: name, date or language")
	cmd.Flags().BoolVar(&desc, "desc", false, "reverse the order")
	return cmd
}
