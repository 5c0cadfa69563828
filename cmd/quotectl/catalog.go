package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

func newCatalogCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show makes, add-ons and payment methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := opts.engine()
			if err != nil {
				return err
			}
			cat := eng.Catalog()

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"makes": map[domain.VehicleType][]string{
						domain.VehicleCar:        cat.Makes(domain.VehicleCar),
						domain.VehicleMotorcycle: cat.Makes(domain.VehicleMotorcycle),
					},
					"addons":          cat.Addons(),
					"payment_methods": cat.PaymentMethods(),
					"currency":        cat.Currency(),
				})
			}

			w := cmd.OutOrStdout()
			for _, vt := range []domain.VehicleType{domain.VehicleCar, domain.VehicleMotorcycle} {
				fmt.Fprintf(w, "%s makes: %s\n", vt, strings.Join(cat.Makes(vt), ", "))
			}
			fmt.Fprintln(w, "add-ons:")
			for _, a := range cat.Addons() {
				fmt.Fprintf(w, "  %-18s %s %7.2f  %s\n", a.ID, cat.Currency(), a.Price, a.Name)
			}
			fmt.Fprintln(w, "payment methods:")
			for _, m := range cat.PaymentMethods() {
				fmt.Fprintf(w, "  %-8s %s\n", m.ID, m.Name)
			}
			return nil
		},
	}
}
