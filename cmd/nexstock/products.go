package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"NexStock/internal/inventory"
)

func newProductsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect products in the inventory",
	}
	cmd.AddCommand(
		newProductsListCommand(opts),
		newProductsGetCommand(opts),
		newProductsAddCommand(opts),
		newProductsUpdateCommand(opts),
		newProductsDeleteCommand(opts),
	)
	return cmd
}

func newProductsListCommand(opts *rootOptions) *cobra.Command {
	var (
		name   string
		price  string
		sortBy string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered and sorted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := inventory.ProductQuery{Name: name, Sort: sortBy}
			if price != "" {
				p, err := strconv.ParseFloat(price, 64)
				if err != nil {
					return fmt.Errorf("invalid --price %q", price)
				}
				q.Price = &p
			}

			e, err := loadEnv(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			products, err := inventory.NewService(e.store, nil).SearchProducts(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), products)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "case-insensitive name substring")
	cmd.Flags().StringVar(&price, "price", "", "exact price (within 0.01)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by id, name or price")
	return cmd
}

func newProductsGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("product", args[0])
			if err != nil {
				return err
			}

			e, err := loadEnv(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			p, err := inventory.NewService(e.store, nil).GetProduct(cmd.Context(), id)
			if errors.Is(err, inventory.ErrProductNotFound) {
				return fmt.Errorf("product %d not found", id)
			}
			if err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), []inventory.Product{p})
		},
	}
}

func newProductsAddCommand(opts *rootOptions) *cobra.Command {
	var in inventory.NewProduct

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range []string{"id", "name", "price", "quantity"} {
				if !cmd.Flags().Changed(name) {
					return fmt.Errorf("--%s is required", name)
				}
			}

			return withService(cmd, opts, func(svc *inventory.Service) error {
				p, err := svc.AddProduct(cmd.Context(), in)
				if errors.Is(err, inventory.ErrDuplicateID) {
					return fmt.Errorf("product %d already exists", in.ID)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Product added successfully.")
				return printProducts(cmd.OutOrStdout(), []inventory.Product{p})
			})
		},
	}

	cmd.Flags().Int64Var(&in.ID, "id", 0, "product id")
	cmd.Flags().StringVar(&in.Name, "name", "", "product name")
	cmd.Flags().Float64Var(&in.Price, "price", 0, "unit price")
	cmd.Flags().Int64Var(&in.Quantity, "quantity", 0, "units in stock")
	return cmd
}

func newProductsUpdateCommand(opts *rootOptions) *cobra.Command {
	var (
		name     string
		price    float64
		quantity int64
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a product's name, price or quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("product", args[0])
			if err != nil {
				return err
			}

			var patch inventory.ProductPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("price") {
				patch.Price = &price
			}
			if cmd.Flags().Changed("quantity") {
				patch.Quantity = &quantity
			}
			if patch == (inventory.ProductPatch{}) {
				return errors.New("nothing to update: pass --name, --price or --quantity")
			}

			return withService(cmd, opts, func(svc *inventory.Service) error {
				p, err := svc.UpdateProduct(cmd.Context(), id, patch)
				if errors.Is(err, inventory.ErrProductNotFound) {
					return fmt.Errorf("product %d not found", id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Product updated successfully.")
				return printProducts(cmd.OutOrStdout(), []inventory.Product{p})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().Float64Var(&price, "price", 0, "new unit price")
	cmd.Flags().Int64Var(&quantity, "quantity", 0, "new quantity")
	return cmd
}

func newProductsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("product", args[0])
			if err != nil {
				return err
			}

			return withService(cmd, opts, func(svc *inventory.Service) error {
				err := svc.DeleteProduct(cmd.Context(), id)
				if errors.Is(err, inventory.ErrProductNotFound) {
					return fmt.Errorf("product %d not found", id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Product deleted successfully.")
				return nil
			})
		},
	}
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			st, err := inventory.NewService(e.store, nil).Stats(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite the stored inventory in the current document shape",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			var products int
			err = e.store.Update(cmd.Context(), func(doc *inventory.Document) error {
				products = len(doc.Products)
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "inventory rewritten (%d products)\n", products)
			return nil
		},
	}
}

func printProducts(out io.Writer, products []inventory.Product) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tTOTAL VALUE")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d\t%.2f\n", p.ID, p.Name, p.Price, p.Quantity, p.Price*float64(p.Quantity))
	}
	return tw.Flush()
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
