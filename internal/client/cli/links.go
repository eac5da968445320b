package cli

import (
	"fmt"

	"github.com/dmitrijs2005/linkdeck/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func statusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show sync status and document summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := app.engine.Document()
			fmt.Printf("status:     %s\n", app.engine.Status())
			if doc == nil {
				fmt.Println("document:   none")
				return nil
			}
			fmt.Printf("version:    %d\n", doc.Meta.Version)
			fmt.Printf("links:      %d\n", doc.LinkCount())
			fmt.Printf("categories: %d\n", doc.CategoryCount())
			if doc.PrivateVault != "" {
				fmt.Println("vault:      present")
			}
			if c := app.engine.CurrentConflict(); c != nil {
				fmt.Printf("conflict:   local v%d vs remote v%d, run 'linkdeck resolve local|remote'\n",
					c.Local.Meta.Version, c.Remote.Meta.Version)
			}
			return nil
		},
	}
}

func listCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list links grouped by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := app.engine.Document()
			if doc == nil || len(doc.Links) == 0 {
				fmt.Println("no links")
				return nil
			}

			names := make(map[string]string, len(doc.Categories))
			for _, c := range doc.Categories {
				names[c.ID] = c.Name
			}

			for _, c := range doc.Categories {
				fmt.Printf("%s:\n", c.Name)
				for _, l := range doc.Links {
					if l.CategoryID != c.ID {
						continue
					}
					pin := " "
					if l.Pinned {
						pin = "*"
					}
					fmt.Printf("  %s %-12s %-24s %s\n", pin, l.ID, l.Title, l.URL)
				}
			}
			for _, l := range doc.Links {
				if _, ok := names[l.CategoryID]; !ok {
					fmt.Printf("  ? %-12s %-24s %s\n", l.ID, l.Title, l.URL)
				}
			}
			return nil
		},
	}
}

func addCmd(app *App) *cobra.Command {
	var title, url, category string

	command := &cobra.Command{
		Use:     "add",
		Short:   "add a link",
		Example: "linkdeck add -t <title> -u <url> -c <category>",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return fmt.Errorf("flag -u is required")
			}
			if title == "" {
				title = url
			}
			if category == "" {
				category = models.FallbackCategoryID
			}

			err := app.engine.Update(cmd.Context(), func(d *models.SyncDocument) {
				found := false
				for _, c := range d.Categories {
					if c.ID == category {
						found = true
						break
					}
				}
				if !found {
					d.Categories = append(d.Categories, models.Category{ID: category, Name: category})
				}
				d.Links = append(d.Links, models.Link{
					ID:         uuid.NewString()[:8],
					Title:      title,
					URL:        url,
					CategoryID: category,
				})
			})
			if err != nil {
				return err
			}

			fmt.Println("link added, sync scheduled")
			app.engine.SyncNow(cmd.Context())
			return nil
		},
	}

	command.Flags().StringVarP(&title, "title", "t", "", "link title")
	command.Flags().StringVarP(&url, "url", "u", "", "link URL")
	command.Flags().StringVarP(&category, "category", "c", "", "category id")
	return command
}

func removeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <link-id>",
		Short: "remove a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			err := app.engine.Update(cmd.Context(), func(d *models.SyncDocument) {
				kept := d.Links[:0]
				for _, l := range d.Links {
					if l.ID != id {
						kept = append(kept, l)
					}
				}
				d.Links = kept
			})
			if err != nil {
				return err
			}

			fmt.Println("link removed, sync scheduled")
			app.engine.SyncNow(cmd.Context())
			return nil
		},
	}
}
