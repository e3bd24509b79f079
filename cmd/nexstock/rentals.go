package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"NexStock/internal/inventory"
)

func newSellCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sell <product-id> <quantity>",
		Short: "Sell units of a product and record the sale",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("product", args[0])
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}

			return withService(cmd, opts, func(svc *inventory.Service) error {
				p, sale, err := svc.Sell(cmd.Context(), id, qty)
				switch {
				case errors.Is(err, inventory.ErrProductNotFound):
					return fmt.Errorf("product %d not found", id)
				case errors.Is(err, inventory.ErrInsufficientStock):
					return fmt.Errorf("only %d left of product %d", currentStock(cmd, svc, id), id)
				case err != nil:
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Sold %d x %s for %.2f (sale %d). Remaining quantity: %d\n",
					sale.QuantitySold, sale.ProductName, sale.Amount, sale.SaleID, p.Quantity)
				return nil
			})
		},
	}
}

func currentStock(cmd *cobra.Command, svc *inventory.Service, id int64) int64 {
	p, err := svc.GetProduct(cmd.Context(), id)
	if err != nil {
		return 0
	}
	return p.Quantity
}

func newRentCommand(opts *rootOptions) *cobra.Command {
	var req inventory.RentRequest

	cmd := &cobra.Command{
		Use:   "rent <product-id>",
		Short: "Record a rental of one unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("product", args[0])
			if err != nil {
				return err
			}
			req.ProductID = id

			return withService(cmd, opts, func(svc *inventory.Service) error {
				rental, p, err := svc.Rent(cmd.Context(), req)
				switch {
				case errors.Is(err, inventory.ErrProductNotFound):
					return fmt.Errorf("product %d not found", id)
				case errors.Is(err, inventory.ErrNotAvailable):
					return fmt.Errorf("product %d is out of stock", id)
				case errors.Is(err, inventory.ErrInvalidRental):
					return errors.New("--renter, --phone, --address and --return-date are required and --paid must not be negative")
				case err != nil:
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Rental %d recorded. Remaining quantity: %d\n", rental.RentalID, p.Quantity)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.RenterName, "renter", "", "renter name")
	cmd.Flags().StringVar(&req.PhoneNumber, "phone", "", "renter phone number")
	cmd.Flags().StringVar(&req.Address, "address", "", "renter address")
	cmd.Flags().StringVar(&req.ReturnDate, "return-date", "", "expected return date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&req.AmountPaid, "paid", 0, "amount paid")
	return cmd
}

func newRentalsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rentals",
		Short: "View rentals and mark them returned",
	}
	cmd.AddCommand(newRentalsListCommand(opts), newRentalsReturnCommand(opts))
	return cmd
}

func newRentalsListCommand(opts *rootOptions) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rentals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(svc *inventory.Service) error {
				rentals, err := svc.ListRentals(cmd.Context())
				if err != nil {
					return err
				}
				if active {
					kept := rentals[:0:0]
					for _, r := range rentals {
						if r.Status == inventory.RentalActive {
							kept = append(kept, r)
						}
					}
					rentals = kept
				}
				return printRentals(cmd.OutOrStdout(), rentals)
			})
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "only rentals not yet returned")
	return cmd
}

func newRentalsReturnCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <rental-id>",
		Short: "Mark a rental returned and restock its product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("rental", args[0])
			if err != nil {
				return err
			}

			return withService(cmd, opts, func(svc *inventory.Service) error {
				_, already, err := svc.ReturnRental(cmd.Context(), id)
				if errors.Is(err, inventory.ErrRentalNotFound) {
					return fmt.Errorf("rental %d not found", id)
				}
				if err != nil {
					return err
				}

				if already {
					fmt.Fprintf(cmd.OutOrStdout(), "Rental %d was already returned.\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rental %d marked as returned.\n", id)
				return nil
			})
		},
	}
}

func printRentals(out io.Writer, rentals []inventory.Rental) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RENTAL\tPRODUCT\tRENTER\tPHONE\tRENTED\tDUE\tPAID\tSTATUS")
	for _, r := range rentals {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			r.RentalID, r.ProductName, r.RenterName, r.PhoneNumber, r.RentDate, r.ReturnDate, r.AmountPaid, r.Status)
	}
	return tw.Flush()
}
