package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Resolve a single address and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, cleanup, err := newResolver(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := resolver.Geocode(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "lookup")
		}

		out := struct {
			Query     string  `json:"query"`
			Matched   bool    `json:"matched"`
			Longitude float64 `json:"longitude,omitempty"`
			Latitude  float64 `json:"latitude,omitempty"`
			Address   string  `json:"address,omitempty"`
			Source    string  `json:"source,omitempty"`
		}{
			Query:   args[0],
			Matched: res.Matched,
		}
		if res.Matched {
			out.Longitude = res.Longitude
			out.Latitude = res.Latitude
			out.Address = res.Address
			out.Source = res.Source
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
