package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"als-transform/internal/schema"
)

func newComposeCmd(a *app) *cobra.Command {
	var (
		output string
		class  string
	)

	cmd := &cobra.Command{
		Use:   "compose <fragment.json>...",
		Short: "Merge schema fragments into one target schema",
		Long: "Merge schema fragments left to right: properties merge by name with later\n" +
			"fragments overriding, required and enum values union, additionalProperties=false wins.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := make([]*schema.Schema, 0, len(args))

			for _, path := range args {
				doc, err := schema.LoadFile(path, schema.LoadOptions{Class: class})
				if err != nil {
					return loadErr(err)
				}

				roots = append(roots, doc.Root)
			}

			data, err := schema.Marshal(schema.Compose(roots...))
			if err != nil {
				return runErr(fmt.Errorf("encode schema: %w", err))
			}

			if output == "" || output == "-" {
				_, err = a.stdout.Write(data)
			} else {
				err = os.WriteFile(output, data, 0o644)
			}

			if err != nil {
				return runErr(fmt.Errorf("write schema: %w", err))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the merged schema to this file instead of stdout")
	cmd.Flags().StringVar(&class, "class", "", "take $defs/<class> from every fragment")

	return cmd
}
